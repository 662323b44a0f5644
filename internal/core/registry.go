package core

import "sync"

// Registry tracks the users whose live connection is held by this process.
// It is scoped to the process lifetime and injected into the managers.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewRegistry constructs an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*User)}
}

// Add records a user as locally connected.
func (r *Registry) Add(u *User) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
}

// Remove forgets a user.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.users, id)
	r.mu.Unlock()
}

// Get returns the live user for id, nil if not connected here.
func (r *Registry) Get(id string) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[id]
}

// All returns a snapshot of the locally connected users.
func (r *Registry) All() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	return users
}

// Len reports how many users are connected to this process.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Close drops every tracked user. Called on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	r.users = make(map[string]*User)
	r.mu.Unlock()
}
