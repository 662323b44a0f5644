package core

import (
	"errors"
	"fmt"
)

// RoomFullError reports an admission denied by a room's capacity check.
// No state has been mutated when it is returned.
type RoomFullError struct {
	Room     string
	MaxUsers int
}

func (e *RoomFullError) Error() string {
	return fmt.Sprintf("room %s is full (max %d users)", e.Room, e.MaxUsers)
}

// IsRoomFull reports whether err is a capacity rejection.
func IsRoomFull(err error) bool {
	var full *RoomFullError
	return errors.As(err, &full)
}
