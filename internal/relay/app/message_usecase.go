package app

import (
	"context"
	"time"

	"secure_chat_relay/internal/relay/domain"
	"secure_chat_relay/internal/relay/repository"
	"secure_chat_relay/pkg/logger"
	"secure_chat_relay/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageUseCase 負責訊息的建立與後續變更
type MessageUseCase struct {
	hub   *Hub
	saver *repository.Coalescer
	sched *DisappearScheduler
}

// NewMessageUseCase init message use case, the scheduler is armed with
// this use case's redaction callback by the caller.
func NewMessageUseCase(hub *Hub, saver *repository.Coalescer, sched *DisappearScheduler) *MessageUseCase {
	return &MessageUseCase{hub: hub, saver: saver, sched: sched}
}

// Post append one message and fan it out to the whole room, sender
// included. kind is decided by the inbound event, not trusted blindly
// from the payload.
func (uc *MessageUseCase) Post(ctx context.Context, s *Session, p domain.SendMessagePayload, kind domain.MessageKind) {
	roomID, _, ok := s.Room()
	if !ok {
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return
	}
	lr, found := uc.hub.Room(roomID)
	if !found {
		metrics.DroppedTotal.WithLabelValues("unknown-room").Inc()
		return
	}

	lr.mu.Lock()
	room := lr.room

	// 1. 進行中被踢出的 session 不能再發言
	member, present := room.Members[s.ID]
	if !present {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return
	}
	// 空字串內容照收，伺服器不設最短長度

	// 2. reply 目標必須存在，不存在就當作沒有 reply
	replyTo := p.ReplyTo
	if replyTo != "" && room.FindMessage(replyTo) == nil {
		replyTo = ""
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		ID:           uuid.New().String(),
		RoomID:       roomID,
		SenderID:     s.ID,
		SenderName:   member.Name,
		SenderAvatar: member.Avatar,
		Content:      p.Content,
		Type:         kind,
		Timestamp:    now,
		ReplyTo:      replyTo,
		Reactions:    map[string][]string{},
		ReadBy:       []string{s.ID},
		IsEncrypted:  p.IsEncrypted,
		FileData:     p.FileData,
	}

	// 3. 發文當下的設定決定過期時間，之後改設定不回溯
	if ms := room.Settings.DisappearingMessages; ms != nil && *ms > 0 {
		at := now.Add(time.Duration(*ms) * time.Millisecond)
		msg.DisappearAt = &at
	}

	room.Messages = append(room.Messages, msg)
	uc.hub.BroadcastRoomLocked(room, domain.NewMessage, msg)
	lr.mu.Unlock()

	if msg.DisappearAt != nil {
		uc.sched.Schedule(roomID, msg.ID, *msg.DisappearAt)
	}
	uc.saver.Dirty(roomID)
}

// React toggle the sender on one emoji bucket and echo the whole map back
func (uc *MessageUseCase) React(ctx context.Context, s *Session, p domain.ReactionPayload) {
	if p.MessageID == "" || p.Emoji == "" {
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return
	}
	lr, ok := uc.memberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	msg := lr.room.FindMessage(p.MessageID)
	if msg == nil || msg.Deleted {
		metrics.DroppedTotal.WithLabelValues("unknown-target").Inc()
		return
	}

	msg.ToggleReaction(s.ID, p.Emoji)
	uc.hub.BroadcastRoomLocked(lr.room, domain.ReactionUpdated, domain.ReactionUpdatedPayload{
		MessageID: msg.ID,
		Reactions: msg.Reactions,
	})
	uc.saver.Dirty(lr.room.ID)
}

// Edit rewrite content, sender only. Editing to the same content still
// flips the edited flag.
func (uc *MessageUseCase) Edit(ctx context.Context, s *Session, p domain.EditMessagePayload) {
	lr, ok := uc.memberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	msg := lr.room.FindMessage(p.MessageID)
	if msg == nil || msg.Deleted {
		metrics.DroppedTotal.WithLabelValues("unknown-target").Inc()
		return
	}
	if msg.SenderID != s.ID {
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return
	}

	now := time.Now().UTC()
	msg.Content = p.NewContent
	msg.Edited = true
	msg.EditedAt = &now

	uc.hub.BroadcastRoomLocked(lr.room, domain.MessageEdited, domain.MessageEditedPayload{
		MessageID:  msg.ID,
		NewContent: msg.Content,
		EditedAt:   now,
	})
	uc.saver.Dirty(lr.room.ID)
}

// Delete redact a message, sender only. A second delete is a no-op.
func (uc *MessageUseCase) Delete(ctx context.Context, s *Session, p domain.DeleteMessagePayload) {
	lr, ok := uc.memberRoom(s)
	if !ok {
		return
	}

	msg := lr.room.FindMessage(p.MessageID)
	if msg == nil {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unknown-target").Inc()
		return
	}
	if msg.SenderID != s.ID {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return
	}
	if msg.Deleted {
		lr.mu.Unlock()
		return
	}

	msg.Redact(domain.DeletedMessageContent)
	uc.hub.BroadcastRoomLocked(lr.room, domain.MessageDeleted, domain.MessageDeletedPayload{MessageID: msg.ID})
	lr.mu.Unlock()

	uc.sched.Cancel(msg.ID)
	uc.saver.Dirty(lr.room.ID)
}

// MarkRead record read receipts, one message-read per newly read message
// to everyone except the reader.
func (uc *MessageUseCase) MarkRead(ctx context.Context, s *Session, p domain.MarkReadPayload) {
	lr, ok := uc.memberRoom(s)
	if !ok {
		return
	}
	defer lr.mu.Unlock()

	reader, present := lr.room.Members[s.ID]
	if !present {
		return
	}

	changed := false
	for _, id := range p.MessageIDs {
		msg := lr.room.FindMessage(id)
		if msg == nil {
			continue
		}
		if msg.MarkReadBy(s.ID) {
			changed = true
			uc.hub.BroadcastRoomLocked(lr.room, domain.MessageRead, domain.MessageReadPayload{
				MessageID: id,
				UserID:    s.ID,
				UserName:  reader.Name,
			}, s.ID)
		}
	}
	if changed {
		uc.saver.Dirty(lr.room.ID)
	}
}

// RestoreRooms put loaded rooms back in the hub. Messages whose disappear
// time elapsed while the process was down are redacted in place without a
// broadcast, the rest get their timers re-armed.
func (uc *MessageUseCase) RestoreRooms(ctx context.Context, rooms []*domain.Room) {
	now := time.Now().UTC()
	restored, redacted := 0, 0

	for _, room := range rooms {
		type pending struct {
			id string
			at time.Time
		}
		var reschedule []pending
		dirty := false

		for _, msg := range room.Messages {
			if msg.DisappearAt == nil || msg.Deleted {
				continue
			}
			if msg.DisappearAt.After(now) {
				reschedule = append(reschedule, pending{id: msg.ID, at: *msg.DisappearAt})
				continue
			}
			msg.Redact(domain.DisappearedMessageContent)
			redacted++
			dirty = true
		}

		uc.hub.AddRoom(room)
		for _, p := range reschedule {
			uc.sched.Schedule(room.ID, p.id, p.at)
		}
		if dirty {
			uc.saver.Dirty(room.ID)
		}
		restored++
	}

	logger.Log.Info("rooms restored", zap.Int("rooms", restored), zap.Int("expiredRedacted", redacted))
}

// RedactExpired is the scheduler callback, fired when a message's
// disappear time passes while the process is up.
func (uc *MessageUseCase) RedactExpired(roomID, messageID string) {
	lr, ok := uc.hub.Room(roomID)
	if !ok {
		return
	}

	lr.mu.Lock()
	msg := lr.room.FindMessage(messageID)
	if msg == nil || msg.Deleted {
		lr.mu.Unlock()
		return
	}
	msg.Redact(domain.DisappearedMessageContent)
	uc.hub.BroadcastRoomLocked(lr.room, domain.MessageDeleted, domain.MessageDeletedPayload{MessageID: messageID})
	lr.mu.Unlock()

	uc.saver.Dirty(roomID)
}

// memberRoom resolve the caller's room and take its lock, verifying the
// caller still holds membership. On ok the room lock is held.
func (uc *MessageUseCase) memberRoom(s *Session) (*liveRoom, bool) {
	roomID, _, ok := s.Room()
	if !ok {
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return nil, false
	}
	lr, found := uc.hub.Room(roomID)
	if !found {
		metrics.DroppedTotal.WithLabelValues("unknown-room").Inc()
		return nil, false
	}

	lr.mu.Lock()
	if _, present := lr.room.Members[s.ID]; !present {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return nil, false
	}
	return lr, true
}
