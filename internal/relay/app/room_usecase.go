package app

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"time"

	"secure_chat_relay/internal/relay/domain"
	"secure_chat_relay/internal/relay/repository"
	errprocess "secure_chat_relay/pkg/err"
	"secure_chat_relay/pkg/logger"
	"secure_chat_relay/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoomUseCase 負責房間生命週期與成員進出
type RoomUseCase struct {
	hub   *Hub
	saver *repository.Coalescer
}

// NewRoomUseCase init room use case
func NewRoomUseCase(hub *Hub, saver *repository.Coalescer) *RoomUseCase {
	return &RoomUseCase{hub: hub, saver: saver}
}

// memberColors palette for members that do not bring their own color
var memberColors = []string{
	"#e57373", "#64b5f6", "#81c784", "#ffb74d",
	"#ba68c8", "#4db6ac", "#f06292", "#a1887f",
}

func pickColor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return memberColors[int(h.Sum32())%len(memberColors)]
}

func initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	out := string([]rune(fields[0])[:1])
	if len(fields) > 1 {
		out += string([]rune(fields[1])[:1])
	}
	return strings.ToUpper(out)
}

// Create mint a room over the REST surface
func (uc *RoomUseCase) Create(ctx context.Context, name, creatorName string) (string, error) {
	if name == "" || creatorName == "" {
		return "", errprocess.Set("room name and creatorName are required")
	}

	room := domain.NewRoom(uuid.New().String(), name, creatorName)
	uc.hub.AddRoom(room)
	uc.saver.Dirty(room.ID)

	logger.Log.Info("room created", zap.String("roomID", room.ID), zap.String("creator", creatorName))
	return room.ID, nil
}

// RoomInfo snapshot a room for the REST lookup
func (uc *RoomUseCase) RoomInfo(ctx context.Context, roomID string) (*domain.Room, bool) {
	lr, ok := uc.hub.Room(roomID)
	if !ok {
		return nil, false
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.room.Clone(), true
}

// Join claim membership, creating the room on first contact. The joiner
// gets the room snapshot, everyone else a user-joined.
func (uc *RoomUseCase) Join(ctx context.Context, s *Session, p domain.JoinRoomPayload) {
	if p.RoomID == "" || p.UserID == "" || p.UserName == "" {
		logger.Log.Debug("join-room dropped, incomplete payload")
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return
	}

	// 已經在別的房間就先離開
	if prevID, _, ok := s.Room(); ok && prevID != p.RoomID {
		uc.leaveRoom(s, true)
	}

	lr, created := uc.hub.GetOrCreateRoom(p.RoomID, p.RoomName, p.UserName)

	lr.mu.Lock()
	room := lr.room

	// 1. 同一個 userId 在房間裡只能有一個成員，舊 session 的項目先移除
	if staleSID, ok := room.FindMemberByUserID(p.UserID); ok {
		delete(room.Members, staleSID)
		if stale := uc.hub.Session(staleSID); stale != nil && staleSID != s.ID {
			stale.ClearRoomIf(p.RoomID)
		}
	}

	// 2. 插入成員
	member := domain.Member{
		SessionID: s.ID,
		UserID:    p.UserID,
		Name:      p.UserName,
		Avatar:    p.Avatar,
		Color:     p.Color,
		JoinedAt:  time.Now().UTC(),
		IsOnline:  true,
	}
	if member.Avatar == "" {
		member.Avatar = initials(p.UserName)
	}
	if member.Color == "" {
		member.Color = pickColor(p.UserID)
	}
	entry := member
	room.Members[s.ID] = &entry
	s.SetRoom(p.RoomID, member)

	// 3. 回覆快照給加入者，其他人收 user-joined
	uc.hub.SendTo(s, domain.RoomJoined, domain.RoomJoinedPayload{
		RoomName: room.Name,
		Members:  room.MemberList(),
		Messages: room.TailMessages(domain.JoinHistoryLimit),
		Settings: room.Settings,
	})
	uc.hub.BroadcastRoomLocked(room, domain.UserJoined, domain.UserJoinedPayload{User: &entry}, s.ID)
	lr.mu.Unlock()

	if created {
		logger.Log.Info("room created on join", zap.String("roomID", p.RoomID), zap.String("creator", p.UserName))
	}
	uc.saver.Dirty(p.RoomID)
}

// UpdateSettings merge a settings patch from any member
func (uc *RoomUseCase) UpdateSettings(ctx context.Context, s *Session, patch json.RawMessage) {
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
	if _, member := lr.room.Members[s.ID]; !member {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return
	}
	if err := lr.room.Settings.ApplySettingsPatch(patch); err != nil {
		lr.mu.Unlock()
		logger.Log.Debug("update-settings dropped, bad patch: " + err.Error())
		metrics.DroppedTotal.WithLabelValues("schema").Inc()
		return
	}
	uc.hub.BroadcastRoomLocked(lr.room, domain.SettingsUpdated, domain.SettingsUpdatedPayload{Settings: lr.room.Settings})
	lr.mu.Unlock()

	uc.saver.Dirty(roomID)
}

// Kick evict a member. Only the session whose display name matches the
// room's creator identity may do this, the evicted session keeps its
// connection and just loses the room.
func (uc *RoomUseCase) Kick(ctx context.Context, s *Session, targetID string) {
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
	requester, present := lr.room.Members[s.ID]
	if !present || requester.Name != lr.room.CreatedBy {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unauthorized").Inc()
		return
	}
	target, exists := lr.room.Members[targetID]
	if !exists {
		lr.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unknown-target").Inc()
		return
	}

	delete(lr.room.Members, targetID)
	if ts := uc.hub.Session(targetID); ts != nil {
		ts.ClearRoomIf(roomID)
		uc.hub.SendTo(ts, domain.Kicked, domain.KickedPayload{RoomID: roomID})
	}
	uc.hub.BroadcastRoomLocked(lr.room, domain.UserLeft, domain.UserLeftPayload{
		User:    domain.UserRef{ID: targetID, Name: target.Name},
		Members: lr.room.MemberList(),
	})
	lr.mu.Unlock()

	logger.Log.Info("member kicked", zap.String("roomID", roomID), zap.String("target", targetID))
	uc.saver.Dirty(roomID)
}

// Disconnect transport closed, treat as an orderly leave
func (uc *RoomUseCase) Disconnect(ctx context.Context, s *Session) {
	uc.leaveRoom(s, true)
}

func (uc *RoomUseCase) leaveRoom(s *Session, notify bool) {
	roomID, member, ok := s.Room()
	if !ok {
		return
	}

	if lr, found := uc.hub.Room(roomID); found {
		lr.mu.Lock()
		if _, present := lr.room.Members[s.ID]; present {
			delete(lr.room.Members, s.ID)
			if notify {
				uc.hub.BroadcastRoomLocked(lr.room, domain.UserLeft, domain.UserLeftPayload{
					User:    domain.UserRef{ID: s.ID, Name: member.Name},
					Members: lr.room.MemberList(),
				})
			}
		}
		lr.mu.Unlock()
		uc.saver.Dirty(roomID)
	}
	s.ClearRoom()
}
