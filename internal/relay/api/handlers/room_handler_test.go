package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"secure_chat_relay/internal/relay/app"
	"secure_chat_relay/internal/relay/repository"
	"secure_chat_relay/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

// newRoomApp 掛好路由的測試用 fiber app
func newRoomApp() (*fiber.App, *app.RoomUseCase) {
	logger.SetNewNop() // 停用 Logger 避免測試時輸出
	hub := app.NewHub()
	saver := repository.NewCoalescer(time.Hour, func([]string) {})
	roomUC := app.NewRoomUseCase(hub, saver)

	h := NewRoomHandler(roomUC)
	r := fiber.New()
	r.Post("/api/rooms", h.CreateRoom)
	r.Get("/api/rooms/:id", h.GetRoom)
	return r, roomUC
}

// 測試建立房間
func TestRoomHandler_CreateRoom(t *testing.T) {
	r, _ := newRoomApp()

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"name":"Cell","creatorName":"Alice"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body RoomCreatedResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.RoomID)
	assert.Equal(t, "/room/"+body.RoomID, body.InviteLink)
}

// 測試建立房間的錯誤回應
func TestRoomHandler_CreateRoomBadRequest(t *testing.T) {
	r, _ := newRoomApp()

	// 壞 JSON
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Invalid JSON body", body.Error)

	// 缺欄位
	req = httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"name":"Cell"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = r.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// 測試查詢房間資訊
func TestRoomHandler_GetRoom(t *testing.T) {
	r, roomUC := newRoomApp()

	roomID, err := roomUC.Create(context.Background(), "Cell", "Alice")
	assert.NoError(t, err)

	resp, err := r.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/"+roomID, nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body RoomInfoResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, roomID, body.ID)
	assert.Equal(t, "Cell", body.Name)
	assert.Equal(t, 0, body.MemberCount)
	assert.Equal(t, 50, body.Settings.MaxMembers)
	assert.False(t, body.CreatedAt.IsZero())
}

// 測試查詢不存在的房間
func TestRoomHandler_GetRoomNotFound(t *testing.T) {
	r, _ := newRoomApp()

	resp, err := r.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/nope", nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body ErrorResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Room not found", body.Error)
}
