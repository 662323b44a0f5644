package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"huddle/internal/core"
)

type roomHandlers struct {
	srv *core.Server
	log *zerolog.Logger
}

// CreateRoomRequest is the body for POST /api/rooms.
type CreateRoomRequest struct {
	Name        string `json:"name"`
	MaxUsers    int    `json:"maxUsers" binding:"min=0"`
	CanBeClosed *bool  `json:"canBeClosed"`
}

// RoomResponse is the public shape of a room.
type RoomResponse struct {
	Name        string          `json:"name"`
	CanBeClosed bool            `json:"canBeClosed"`
	MaxUsers    int             `json:"maxUsers"`
	Properties  core.Properties `json:"properties"`
	Occupancy   int             `json:"occupancy"`
}

func roomResponse(room *core.Room) RoomResponse {
	return RoomResponse{
		Name:        room.Name,
		CanBeClosed: room.CanBeClosed,
		MaxUsers:    room.MaxUsers,
		Properties:  room.Properties,
		Occupancy:   room.Occupancy(),
	}
}

func (h *roomHandlers) createRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	canBeClosed := true
	if req.CanBeClosed != nil {
		canBeClosed = *req.CanBeClosed
	}

	room, err := h.srv.Rooms().CreateRoom(c.Request.Context(), req.Name, req.MaxUsers, canBeClosed)
	if err != nil {
		h.log.Error().Err(err).Str("room", req.Name).Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist room"})
		return
	}

	c.JSON(http.StatusCreated, roomResponse(room))
}

func (h *roomHandlers) getRoom(c *gin.Context) {
	name := c.Param("name")

	room, err := h.srv.Rooms().GetByName(c.Request.Context(), name)
	if err != nil {
		h.log.Error().Err(err).Str("room", name).Msg("get room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	c.JSON(http.StatusOK, roomResponse(room))
}

func (h *roomHandlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": h.srv.ConnectionCount()})
}

func (h *roomHandlers) getRoomMembers(c *gin.Context) {
	name := c.Param("name")

	members := h.srv.Rooms().GetRoomMembers(c.Request.Context(), name)
	roster := make([]core.BroadcastData, 0, len(members))
	for _, member := range members {
		roster = append(roster, member.ToBroadcastData())
	}

	c.JSON(http.StatusOK, gin.H{"members": roster})
}
