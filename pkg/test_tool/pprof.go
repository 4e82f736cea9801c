package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"secure_chat_relay/pkg/config"
	"secure_chat_relay/pkg/logger"
)

// StartPprof 只在 DEBUG 模式下開 pprof 監控伺服器
func StartPprof() {
	if !config.EnvConfig.Debug {
		return
	}

	// 只綁本機，pprof 資料不對外
	go func() {
		logger.Log.Info("Starting pprof server on 127.0.0.1:6060")
		if err := http.ListenAndServe("127.0.0.1:6060", nil); err != nil {
			logger.Log.Infof("pprof server failed: ", err)
		}
	}()
}

// pprof 會開啟一個 HTTP 伺服器，監聽 :6060 端口，提供以下分析端點：
// 	•	/debug/pprof/ → 顯示所有可用的分析數據
// 	•	/debug/pprof/goroutine → 顯示所有 Goroutines
// 	•	/debug/pprof/heap → 顯示記憶體分配
// 	•	/debug/pprof/profile → 執行 30 秒 CPU 分析
// 	•	/debug/pprof/block → 顯示 goroutine 阻塞的情況
// 	•	/debug/pprof/mutex → 顯示 mutex 鎖的競爭情況

// (1) 確認 pprof 是否啟動
// ```
// curl http://localhost:6060/debug/pprof/
// ```
// 如果回傳 JSON，表示 pprof 正常運行。

// (2) 追蹤 Goroutine 狀態
// ```
// go tool pprof http://localhost:6060/debug/pprof/goroutine
// ```
// 房間鎖或 send 佇列卡住時，先看這個找出阻塞的 goroutine。
