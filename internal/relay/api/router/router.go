package router

import (
	"context"

	"secure_chat_relay/internal/relay/api/handlers"
	"secure_chat_relay/internal/relay/app"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册所有路由
// @title Secure Chat Relay API
// @version 1.0
// @description REST surface of the encrypted chat relay. Realtime traffic rides the websocket at /ws.
// @host localhost:3000
// @BasePath /
func RegisterRoutes(
	r *fiber.App,
	pageHandler *handlers.PageHandler,
	roomHandler *handlers.RoomHandler,
	uploadHandler *handlers.UploadHandler,
	wsHandler *app.RelayWebsocketHandler,
) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	r.Get("/ping", pageHandler.Ping)

	r.Get("/", pageHandler.Landing)
	r.Get("/room/:id", pageHandler.RoomPage)

	api := r.Group("/api")
	api.Post("/rooms", roomHandler.CreateRoom)
	api.Get("/rooms/:id", roomHandler.GetRoom)
	api.Post("/upload", uploadHandler.Upload)

	r.Get("/uploads/:name", uploadHandler.Serve)

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		// 這裡可以建立一個「執行個體」，將 UseCase 等注入
		wsHandler.HandleConnection(context.Background(), c)
	}))
}
