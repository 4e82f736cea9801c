package handlers

import (
	"net/http"
	"time"

	"secure_chat_relay/internal/relay/app"
	"secure_chat_relay/internal/relay/domain"

	"github.com/gofiber/fiber/v2"
)

// CreateRoomRequest POST /api/rooms body
type CreateRoomRequest struct {
	Name        string `json:"name"`
	CreatorName string `json:"creatorName"`
}

// RoomCreatedResponse POST /api/rooms reply
type RoomCreatedResponse struct {
	Success    bool   `json:"success"`
	RoomID     string `json:"roomId"`
	InviteLink string `json:"inviteLink"`
}

// RoomInfoResponse GET /api/rooms/{id} reply
type RoomInfoResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	MemberCount int             `json:"memberCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	Settings    domain.Settings `json:"settings"`
}

// ErrorResponse error body for the REST surface
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomHandler room REST handler
type RoomHandler struct {
	roomUC *app.RoomUseCase
}

// NewRoomHandler create room handler
func NewRoomHandler(roomUC *app.RoomUseCase) *RoomHandler {
	return &RoomHandler{roomUC: roomUC}
}

// CreateRoom godoc
// @Summary Create a chat room
// @Description Mints a room id and registers the room. The creator still joins over the websocket like everyone else.
// @Tags Rooms
// @Accept json
// @Produce json
// @Param request body CreateRoomRequest true "Room name and creator display name"
// @Success 200 {object} RoomCreatedResponse "Create room response"
// @Failure 400 {object} ErrorResponse "Bad Request"
// @Router /api/rooms [post]
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body"})
	}

	roomID, err := h.roomUC.Create(c.UserContext(), req.Name, req.CreatorName)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(RoomCreatedResponse{
		Success:    true,
		RoomID:     roomID,
		InviteLink: "/room/" + roomID,
	})
}

// GetRoom godoc
// @Summary Get room info
// @Description Returns the room's name, member count, creation time and settings.
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} RoomInfoResponse "Room info response"
// @Failure 404 {object} ErrorResponse "Room not found"
// @Router /api/rooms/{id} [get]
func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	room, ok := h.roomUC.RoomInfo(c.UserContext(), c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
	}

	return c.JSON(RoomInfoResponse{
		ID:          room.ID,
		Name:        room.Name,
		MemberCount: len(room.Members),
		CreatedAt:   room.CreatedAt,
		Settings:    room.Settings,
	})
}
