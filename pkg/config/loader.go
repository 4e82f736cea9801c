package config

import (
	"errors"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvConfig 集合服務設定
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
)

func initEnv() EnvInfo {
	once.Do(func() {

		path, err := GetPath(".env", 5)
		if err != nil {
			log.Printf("Warning: Could not get .env path: %v", err)
		}

		if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		v := viper.New()
		// 自動讀取環境變數
		v.AutomaticEnv()

		// 預設值
		v.SetDefault("PORT", "3000")
		v.SetDefault("MONGO_DB", "chat_relay")
		v.SetDefault("SNAPSHOT_PATH", "data/rooms.json")
		v.SetDefault("UPLOAD_DIR", "uploads")
		v.SetDefault("MINIO_BUCKET", "chat-uploads")
		v.SetDefault("RELAY_LOG_DIR", "logs")

		envConfig = EnvInfo{
			Port:        v.GetString("PORT"),
			ExternalURL: v.GetString("RENDER_EXTERNAL_URL"),

			MongoURI:     v.GetString("MONGO_URI"),
			MongoDB:      v.GetString("MONGO_DB"),
			SnapshotPath: v.GetString("SNAPSHOT_PATH"),

			UploadDir:     v.GetString("UPLOAD_DIR"),
			MinIOEndpoint: v.GetString("MINIO_ENDPOINT"),
			MinIOUser:     v.GetString("MINIO_USER"),
			MinIOPassword: v.GetString("MINIO_PASSWORD"),
			MinIOBucket:   v.GetString("MINIO_BUCKET"),

			LogDir: v.GetString("RELAY_LOG_DIR"),
			Debug:  v.GetBool("DEBUG"),
		}
	})

	return envConfig
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + "can't find path ")
}
