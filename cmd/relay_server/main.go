package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "secure_chat_relay/cmd/relay_server/docs" // 引入生成的 Swagger 文档
	"secure_chat_relay/internal/relay/api/handlers"
	"secure_chat_relay/internal/relay/api/router"
	"secure_chat_relay/internal/relay/app"
	"secure_chat_relay/internal/relay/repository"
	"secure_chat_relay/pkg/config"
	"secure_chat_relay/pkg/database"
	"secure_chat_relay/pkg/keepalive"
	"secure_chat_relay/pkg/logger"
	"secure_chat_relay/pkg/metrics"
	testtool "secure_chat_relay/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize("relay_server", config.EnvConfig.LogDir)
	logger.Log.SetDebugMode(config.EnvConfig.Debug)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 1. 選擇房間快照儲存層，有 MONGO_URI 用文件庫，否則落地為本機 JSON
	var store repository.RoomStore
	var mongoConn *database.MongoDB
	if config.EnvConfig.UseMongo() {
		var err error
		mongoConn, err = database.NewMongoDB(rootCtx,
			database.Connection{
				ConnectStr:    config.EnvConfig.MongoURI,
				RetryCount:    5,
				RetryInterval: 5 * time.Second,
			},
			config.EnvConfig.MongoDB)
		if err != nil {
			logger.Log.Fatal(
				"Unable to connect to mongoDB database after retries",
				zap.String("address", fmt.Sprintf("[%s]", config.EnvConfig.MongoURI)),
				zap.Error(err),
			)
		}
		store = repository.NewMongoRoomStore(mongoConn.Database)
		logger.Log.Info("room snapshots on mongo", zap.String("database", config.EnvConfig.MongoDB))
	} else {
		var err error
		store, err = repository.NewFileRoomStore(config.EnvConfig.SnapshotPath)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("create snapshot dir err : %v", err))
		}
		logger.Log.Info("room snapshots on disk", zap.String("path", config.EnvConfig.SnapshotPath))
	}

	// 2. 上傳層，有 MINIO_ENDPOINT 用物件儲存，否則存本機目錄
	var uploads repository.UploadStore
	if config.EnvConfig.UseMinIO() {
		mc, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:      config.EnvConfig.MinIOEndpoint,
			User:          config.EnvConfig.MinIOUser,
			Password:      config.EnvConfig.MinIOPassword,
			BucketName:    config.EnvConfig.MinIOBucket,
			UseSSL:        false,
			RetryCount:    5,
			RetryInterval: 5 * time.Second,
		})
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
		}
		uploads = repository.NewMinIOUploadStore(mc)
	} else {
		var err error
		uploads, err = repository.NewLocalUploadStore(config.EnvConfig.UploadDir)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("create upload dir err : %v", err))
		}
	}

	// 3. Hub 與 Coalescer，存檔一律走快照 + dirty 集合
	hub := app.NewHub()
	saver := repository.NewCoalescer(repository.DefaultCoalesceWindow, func(dirty []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.SaveRooms(ctx, hub.SnapshotRooms(), dirty); err != nil {
			metrics.SaveErrorsTotal.Inc()
			logger.Log.Errorf("snapshot save failed", err)
			return
		}
		metrics.SavesTotal.Inc()
		logger.Log.Debug(fmt.Sprintf("snapshot saved, %d dirty room(s)", len(dirty)))
	})

	// 4. 初始化 UseCases，排程器的 callback 指回 messageUC
	var messageUC *app.MessageUseCase
	sched := app.NewDisappearScheduler(func(roomID, messageID string) {
		messageUC.RedactExpired(roomID, messageID)
	})
	roomUC := app.NewRoomUseCase(hub, saver)
	messageUC = app.NewMessageUseCase(hub, saver, sched)
	signalUC := app.NewSignalUseCase(hub)

	// 5. 還原上次的房間快照，載入失敗以空房開機不擋服務
	if rooms, err := store.LoadRooms(rootCtx); err != nil {
		logger.Log.Errorf("load rooms failed, starting empty", err)
	} else {
		messageUC.RestoreRooms(rootCtx, rooms)
	}

	// 6. 防止免費主機閒置回收
	keepalive.Start(rootCtx, config.EnvConfig.ExternalURL)
	testtool.StartPprof()

	// 7. 啟動 Fiber
	r := fiber.New(fiber.Config{
		BodyLimit: 50 << 20, // 上傳上限 50MB
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.LogDir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r,
		handlers.NewPageHandler(),
		handlers.NewRoomHandler(roomUC),
		handlers.NewUploadHandler(uploads),
		app.NewRelayWebsocketHandler(roomUC, messageUC, signalUC, hub),
	)

	// Listen
	go func() {
		port := ":" + config.EnvConfig.Port
		log.Printf("Relay Server listening on %s", port)
		if err := r.Listen(port); err != nil {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 8. 等關機訊號，關閉順序：停收連線 → 停計時器 → 落最後一份快照
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutdown signal received")

	stop()
	if err := r.Shutdown(); err != nil {
		logger.Log.Errorf("fiber shutdown err", err)
	}
	sched.StopAll()
	saver.FlushNow()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		logger.Log.Errorf("store close err", err)
	}
	if mongoConn != nil {
		mongoConn.Close(closeCtx)
	}
	logger.Log.Sync()
}
