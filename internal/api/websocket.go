// internal/api/websocket.go
package api

import (
	"net/http"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/services"
	"github.com/Corphon/SortingHatQuiz/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// TrainingProgressWS 通过 WebSocket 推送训练进度
// 客户端连接后会立即收到当前状态，之后每次进度更新推送一帧，
// 任务完成或失败后发送最终帧并关闭连接。
func (h *Handler) TrainingProgressWS(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.Error(c, http.StatusNotFound, ErrorTaskNotFound, "训练任务不存在")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warnf("WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()

	subscriber := tracker.Subscribe()
	defer tracker.Unsubscribe(subscriber)

	// 读取循环只用于探测客户端断开
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case update, ok := <-subscriber:
			if !ok {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(update); err != nil {
				utils.GetLogger().Warnf("推送训练进度失败 (任务: %s): %v", taskID, err)
				return
			}

			if update.Status == "completed" || update.Status == "failed" {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, update.Status))
				return
			}

		case <-tracker.Done:
			// 排空剩余的更新帧后发送关闭帧
			drainProgressUpdates(conn, subscriber)
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-clientGone:
			return
		}
	}
}

// drainProgressUpdates 把订阅通道中尚未发送的帧写出去
func drainProgressUpdates(conn *websocket.Conn, subscriber chan services.ProgressUpdate) {
	for {
		select {
		case update, ok := <-subscriber:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		default:
			return
		}
	}
}
