package app

import (
	"context"
	"encoding/json"
	"time"

	"secure_chat_relay/internal/relay/domain"
	"secure_chat_relay/pkg/logger"
	"secure_chat_relay/pkg/metrics"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// maxFrameBytes cap on one inbound frame. Big transfers ride the REST
// upload path, anything larger than this on the socket is abuse.
const maxFrameBytes = 10 << 20

// RelayWebsocketHandler 可包含所有需要的 UseCase
type RelayWebsocketHandler struct {
	roomUC    *RoomUseCase
	messageUC *MessageUseCase
	signalUC  *SignalUseCase
	hub       *Hub
}

// NewRelayWebsocketHandler create RelayWebsocketHandler
func NewRelayWebsocketHandler(
	roomUC *RoomUseCase,
	messageUC *MessageUseCase,
	signalUC *SignalUseCase,
	hub *Hub,
) *RelayWebsocketHandler {
	return &RelayWebsocketHandler{
		roomUC:    roomUC,
		messageUC: messageUC,
		signalUC:  signalUC,
		hub:       hub,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
//
// One session per socket. Reads run here, writes run on the session's
// own pump so broadcasts never block the room lock on a slow client.
func (h *RelayWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	s := NewSession(conn)
	h.hub.Register(s)
	logger.Log.Info("websocket session open", zap.String("sessionID", s.ID))

	defer func() {
		h.roomUC.Disconnect(ctx, s)
		h.hub.Unregister(s.ID)
		s.CloseOnce()
		conn.Close()
		logger.Log.Info("websocket session closed", zap.String("sessionID", s.ID))
	}()

	conn.SetReadLimit(maxFrameBytes)

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	//fiber會自動處理回傳pong,故需要SetPongHandler另外接出
	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	//client發出ping
	//fiber會自動處理ping,故需要SetPingHandler另外接出
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	go s.WritePump()

	for {
		// 1. 讀取前端訊息
		mt, message, err := conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived, //1005 c.WriteMessage(websocket.CloseMessage, []byte{})
			) {
				logger.Log.Debug("connection closed: " + err.Error())
			} else {
				//直接斷線 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, s, mt, message)
	}
}

func (h *RelayWebsocketHandler) execWebsocketAction(ctx context.Context, s *Session, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, s, msg)

	//! close ping pong fiber會自動處理，故需使用setHandler處理
	default:
		// 協議只用文字幀，其他一律丟棄
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
	}
}

// textMessageAction decode one frame and route it. Schema, auth and
// target failures all drop silently, the protocol has no error echo.
func (h *RelayWebsocketHandler) textMessageAction(ctx context.Context, s *Session, msg []byte) {
	var ev domain.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		logger.Log.Debug("frame unmarshal error: " + err.Error())
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Event)).Inc()

	switch ev.Event {
	case domain.JoinRoom:
		var p domain.JoinRoomPayload
		if !h.decode(ev, &p) {
			return
		}
		h.roomUC.Join(ctx, s, p)

	case domain.SendMessage:
		var p domain.SendMessagePayload
		if !h.decode(ev, &p) {
			return
		}
		kind := p.Type
		if kind == "" {
			kind = domain.MessageText
		}
		h.messageUC.Post(ctx, s, p, kind)

	//語音訊息走同一條路，種類固定為 voice
	case domain.VoiceMessage:
		var p domain.VoiceMessagePayload
		if !h.decode(ev, &p) {
			return
		}
		h.messageUC.Post(ctx, s, domain.SendMessagePayload{
			Content:     p.Content,
			FileData:    p.FileData,
			IsEncrypted: p.IsEncrypted,
		}, domain.MessageVoice)

	case domain.TypingStart:
		h.signalUC.Typing(ctx, s, true)

	case domain.TypingStop:
		h.signalUC.Typing(ctx, s, false)

	case domain.AddReaction:
		var p domain.ReactionPayload
		if !h.decode(ev, &p) {
			return
		}
		h.messageUC.React(ctx, s, p)

	case domain.MarkRead:
		var p domain.MarkReadPayload
		if !h.decode(ev, &p) {
			return
		}
		h.messageUC.MarkRead(ctx, s, p)

	case domain.EditMessage:
		var p domain.EditMessagePayload
		if !h.decode(ev, &p) {
			return
		}
		h.messageUC.Edit(ctx, s, p)

	case domain.DeleteMessage:
		var p domain.DeleteMessagePayload
		if !h.decode(ev, &p) {
			return
		}
		h.messageUC.Delete(ctx, s, p)

	case domain.UpdateSettings:
		h.roomUC.UpdateSettings(ctx, s, ev.Data)

	case domain.KickMember:
		var p domain.KickMemberPayload
		if !h.decode(ev, &p) {
			return
		}
		h.roomUC.Kick(ctx, s, p.TargetID)

	case domain.CanvasStroke:
		var p domain.CanvasStrokePayload
		if !h.decode(ev, &p) {
			return
		}
		h.signalUC.CanvasStroke(ctx, s, p)

	case domain.JoinVoice:
		h.signalUC.VoicePresence(ctx, s, true)

	case domain.LeaveVoice:
		h.signalUC.VoicePresence(ctx, s, false)

	case domain.VoiceSignal, domain.CallSignal:
		var p domain.SignalPayload
		if !h.decode(ev, &p) {
			return
		}
		h.signalUC.RelaySignal(ctx, s, ev.Event, p)

	case domain.CallInvite:
		var p domain.CallInvitePayload
		if !h.decode(ev, &p) {
			return
		}
		h.signalUC.CallInvite(ctx, s, p)

	case domain.CallAccept, domain.CallReject, domain.CallEnd:
		var p domain.CallTargetPayload
		if !h.decode(ev, &p) {
			return
		}
		h.signalUC.CallEvent(ctx, s, ev.Event, p)

	case domain.CallMediaHandshake:
		var p domain.MediaHandshakePayload
		if !h.decode(ev, &p) {
			return
		}
		h.signalUC.MediaHandshake(ctx, s, p)

	case domain.HandshakeInit:
		var p domain.HandshakeInitPayload
		if !h.decode(ev, &p) {
			return
		}
		h.signalUC.HandshakeInit(ctx, s, p)

	case domain.HandshakeResponse:
		var p domain.HandshakeResponsePayload
		if !h.decode(ev, &p) {
			return
		}
		h.signalUC.HandshakeResponse(ctx, s, p)

	default:
		logger.Log.Debug("unknown event kind: " + string(ev.Event))
		metrics.DroppedTotal.WithLabelValues("unknown-kind").Inc()
	}
}

func (h *RelayWebsocketHandler) decode(ev domain.Event, out interface{}) bool {
	if len(ev.Data) == 0 {
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return false
	}
	if err := json.Unmarshal(ev.Data, out); err != nil {
		logger.Log.Debug(string(ev.Event) + " payload unmarshal error: " + err.Error())
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return false
	}
	return true
}
