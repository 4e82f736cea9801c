package app

import (
	"context"
	"fmt"

	"secure_chat_relay/internal/relay/domain"
	"secure_chat_relay/pkg/logger"
	"secure_chat_relay/pkg/metrics"
)

// SignalUseCase 純轉發，伺服器不看內容
//
// Covers typing indicators, voice presence, canvas strokes, the key
// handshake broker and the WebRTC call envelopes. Nothing here touches
// room history or the persistence trigger.
type SignalUseCase struct {
	hub *Hub
}

// NewSignalUseCase init signal use case
func NewSignalUseCase(hub *Hub) *SignalUseCase {
	return &SignalUseCase{hub: hub}
}

// Typing relay a typing indicator to the rest of the room
func (uc *SignalUseCase) Typing(ctx context.Context, s *Session, start bool) {
	lr, member, ok := uc.lockedMemberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	if start {
		uc.hub.BroadcastRoomLocked(lr.room, domain.UserTyping, domain.PresencePayload{
			UserID:   s.ID,
			UserName: member.Name,
		}, s.ID)
		return
	}
	uc.hub.BroadcastRoomLocked(lr.room, domain.UserStoppedTyping, domain.PresencePayload{UserID: s.ID}, s.ID)
}

// VoicePresence announce joining or leaving the voice channel
func (uc *SignalUseCase) VoicePresence(ctx context.Context, s *Session, joined bool) {
	lr, member, ok := uc.lockedMemberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	if joined {
		uc.hub.BroadcastRoomLocked(lr.room, domain.UserJoinedVoice, domain.PresencePayload{
			UserID:   s.ID,
			UserName: member.Name,
		}, s.ID)
		return
	}
	uc.hub.BroadcastRoomLocked(lr.room, domain.UserLeftVoice, domain.PresencePayload{UserID: s.ID}, s.ID)
}

// CanvasStroke relay an opaque whiteboard stroke to the rest of the room
func (uc *SignalUseCase) CanvasStroke(ctx context.Context, s *Session, p domain.CanvasStrokePayload) {
	if len(p.Stroke) == 0 {
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return
	}
	lr, _, ok := uc.lockedMemberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	uc.hub.BroadcastRoomLocked(lr.room, domain.CanvasStroke, domain.CanvasStrokeOut{
		SenderID: s.ID,
		Stroke:   p.Stroke,
	}, s.ID)
}

// HandshakeInit broadcast a joiner's public key request to everyone else
func (uc *SignalUseCase) HandshakeInit(ctx context.Context, s *Session, p domain.HandshakeInitPayload) {
	if p.PK == "" {
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return
	}
	lr, _, ok := uc.lockedMemberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	uc.hub.BroadcastRoomLocked(lr.room, domain.HandshakeRequest, domain.HandshakeRequestPayload{
		SenderID: s.ID,
		PK:       p.PK,
	}, s.ID)
}

// HandshakeResponse route a wrapped room key back to the joiner only.
// First responder wins on the client side, the broker does not dedupe.
func (uc *SignalUseCase) HandshakeResponse(ctx context.Context, s *Session, p domain.HandshakeResponsePayload) {
	lr, _, ok := uc.lockedMemberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	if _, present := lr.room.Members[p.TargetID]; !present {
		metrics.DroppedTotal.WithLabelValues("unknown-target").Inc()
		return
	}
	uc.hub.SendToSession(p.TargetID, domain.HandshakeComplete, domain.HandshakeCompletePayload{
		Ciphertext:   p.Ciphertext,
		EncryptedKey: p.EncryptedKey,
	})
}

// RelaySignal unicast an opaque signaling envelope, used for voice-signal
// and call-signal which share one shape.
func (uc *SignalUseCase) RelaySignal(ctx context.Context, s *Session, kind domain.EventKind, p domain.SignalPayload) {
	uc.toTarget(s, p.TargetID, kind, domain.SignalOut{
		SenderID: s.ID,
		Signal:   p.Signal,
	})
}

// CallInvite ring one member
func (uc *SignalUseCase) CallInvite(ctx context.Context, s *Session, p domain.CallInvitePayload) {
	lr, member, ok := uc.lockedMemberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	if _, present := lr.room.Members[p.TargetID]; !present {
		metrics.DroppedTotal.WithLabelValues("unknown-target").Inc()
		return
	}
	uc.hub.SendToSession(p.TargetID, domain.CallInvite, domain.CallInviteOut{
		SenderID:   s.ID,
		SenderName: member.Name,
		CallType:   p.CallType,
	})
}

// CallEvent unicast accept/reject/end, the kind passes through unchanged
func (uc *SignalUseCase) CallEvent(ctx context.Context, s *Session, kind domain.EventKind, p domain.CallTargetPayload) {
	uc.toTarget(s, p.TargetID, kind, domain.CallEventOut{SenderID: s.ID})
}

// MediaHandshake unicast the per-call media key material, still opaque
func (uc *SignalUseCase) MediaHandshake(ctx context.Context, s *Session, p domain.MediaHandshakePayload) {
	uc.toTarget(s, p.TargetID, domain.CallMediaHandshake, domain.MediaHandshakeOut{
		SenderID:    s.ID,
		MediaPk:     p.MediaPk,
		MediaSecret: p.MediaSecret,
	})
}

func (uc *SignalUseCase) toTarget(s *Session, targetID string, kind domain.EventKind, payload interface{}) {
	lr, _, ok := uc.lockedMemberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	if _, present := lr.room.Members[targetID]; !present {
		logger.Log.Debug(fmt.Sprintf("%s dropped, target %s not in room", kind, targetID))
		metrics.DroppedTotal.WithLabelValues("unknown-target").Inc()
		return
	}
	uc.hub.SendToSession(targetID, kind, payload)
}

// lockedMemberRoom resolve the caller's room, take its lock and verify
// membership. On ok the room lock is held and the member entry returned.
func (uc *SignalUseCase) lockedMemberRoom(s *Session) (*liveRoom, *domain.Member, bool) {
	roomID, _, ok := s.Room()
	if !ok {
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return nil, nil, false
	}
	lr, found := uc.hub.Room(roomID)
	if !found {
		metrics.DroppedTotal.WithLabelValues("unknown-room").Inc()
		return nil, nil, false
	}

	lr.mu.Lock()
	member, present := lr.room.Members[s.ID]
	if !present {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return nil, nil, false
	}
	return lr, member, true
}
