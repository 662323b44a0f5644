package core

import (
	"testing"

	"huddle/internal/storage/memory"
)

func newTestUserManager() (*UserManager, *Registry, *fakeHub, *memory.Store) {
	registry := NewRegistry()
	store := memory.New()
	hub := newFakeHub()
	return NewUserManager(registry, store, testLogger()), registry, hub, store
}

func TestCreateUserPersistsAndRegisters(t *testing.T) {
	users, registry, hub, store := newTestUserManager()

	ch := newFakeChannel("conn-1", hub)
	user := users.CreateUser(t.Context(), ch)

	if user.ID != "conn-1" {
		t.Fatalf("user id = %s, want transport-assigned conn-1", user.ID)
	}
	if registry.Get("conn-1") != user {
		t.Fatal("user not registered as locally connected")
	}

	var rec UserRecord
	found, err := store.Get(t.Context(), UserKey("conn-1"), &rec)
	if err != nil || !found {
		t.Fatalf("user not persisted on creation: found=%v err=%v", found, err)
	}
}

func TestCreateUserBindsPropsMessage(t *testing.T) {
	users, _, hub, store := newTestUserManager()

	ch := newFakeChannel("conn-1", hub)
	user := users.CreateUser(t.Context(), ch)

	ch.deliver(t, MessageUserProps, map[string]any{"name": "alice"})

	if user.Properties["name"] != "alice" {
		t.Fatalf("properties after user-props = %v", user.Properties)
	}
	var rec UserRecord
	if found, _ := store.Get(t.Context(), UserKey("conn-1"), &rec); !found || rec.Properties["name"] != "alice" {
		t.Fatalf("property change not persisted: %v", rec.Properties)
	}
}

func TestGetByIDPrefersLiveInstance(t *testing.T) {
	users, _, hub, _ := newTestUserManager()

	ch := newFakeChannel("conn-1", hub)
	created := users.CreateUser(t.Context(), ch)

	got, err := users.GetByID(t.Context(), "conn-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != created {
		t.Fatal("lookup did not return the live in-memory instance")
	}
}

func TestGetByIDRehydratesFromStorage(t *testing.T) {
	users, _, _, store := newTestUserManager()

	// A user persisted by another process, not connected here.
	if err := store.Set(t.Context(), UserKey("far-away"), UserRecord{Properties: Properties{"name": "dan"}}); err != nil {
		t.Fatal(err)
	}

	users.SetRemoteChannelFactory(func(id string) Channel {
		return newFakeChannel(id, newFakeHub())
	})

	got, err := users.GetByID(t.Context(), "far-away")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("persisted user not rehydrated")
	}
	if got.Properties["name"] != "dan" {
		t.Fatalf("rehydrated properties = %v", got.Properties)
	}
	if got.Channel() == nil {
		t.Fatal("rehydrated user missing remote channel proxy")
	}
}

func TestGetByIDAbsent(t *testing.T) {
	users, _, _, _ := newTestUserManager()

	got, err := users.GetByID(t.Context(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("absent user lookup returned %+v", got)
	}
}

func TestDeleteUserRemovesRecordAndRegistryEntry(t *testing.T) {
	users, registry, hub, store := newTestUserManager()

	user := users.CreateUser(t.Context(), newFakeChannel("conn-1", hub))
	if err := users.DeleteUser(t.Context(), user); err != nil {
		t.Fatal(err)
	}

	if registry.Get("conn-1") != nil {
		t.Fatal("registry still tracks deleted user")
	}
	var rec UserRecord
	if found, _ := store.Get(t.Context(), UserKey("conn-1"), &rec); found {
		t.Fatal("record survived deletion")
	}
}

func TestIsUserInRoom(t *testing.T) {
	users, _, _, store := newTestUserManager()

	if err := store.IndexAdd(t.Context(), UserRoomsIndex("u1"), "lobby"); err != nil {
		t.Fatal(err)
	}

	in, err := users.IsUserInRoom(t.Context(), "u1", "lobby")
	if err != nil {
		t.Fatal(err)
	}
	if !in {
		t.Fatal("expected u1 in lobby")
	}

	in, err = users.IsUserInRoom(t.Context(), "u1", "arena")
	if err != nil {
		t.Fatal(err)
	}
	if in {
		t.Fatal("u1 reported in room it never joined")
	}
}

func TestRefreshPropertiesEmitsForLocalUser(t *testing.T) {
	users, _, hub, store := newTestUserManager()

	user := users.CreateUser(t.Context(), newFakeChannel("conn-1", hub))

	var fired bool
	user.Subscribe(EventPropUpdate, func(Event) { fired = true })

	// Another instance rewrote the persisted properties.
	if err := store.Set(t.Context(), UserKey("conn-1"), UserRecord{Properties: Properties{"name": "eve"}}); err != nil {
		t.Fatal(err)
	}

	if err := users.RefreshProperties(t.Context(), "conn-1"); err != nil {
		t.Fatal(err)
	}
	if user.Properties["name"] != "eve" {
		t.Fatalf("properties after refresh = %v", user.Properties)
	}
	if !fired {
		t.Fatal("prop-update not emitted after refresh")
	}
}
