package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// JoinHistoryLimit how many trailing messages room-joined ships
const JoinHistoryLimit = 100

// Room definition chat room aggregate, the in-memory store owns it
type Room struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedBy string     `json:"createdBy"` // 建立者的顯示名稱，踢人授權用
	CreatedAt time.Time  `json:"createdAt"`
	Settings  Settings   `json:"settings"`
	Messages  []*Message `json:"messages"`

	// 成員以 session id 為 key，連線存活期間才有效
	Members map[string]*Member `json:"-"`
}

// Member definition room member, lives only while the session is connected
type Member struct {
	SessionID string    `json:"id"`
	UserID    string    `json:"userId"` // client 提供的永久 id，重連去重用
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Color     string    `json:"color"`
	JoinedAt  time.Time `json:"joinedAt"`
	IsOnline  bool      `json:"isOnline"`
}

// Settings definition room settings, advisory only
type Settings struct {
	DisappearingMessages *int64 `json:"disappearingMessages"` // 毫秒，null 表示關閉
	MaxMembers           int    `json:"maxMembers"`
	IsPrivate            bool   `json:"isPrivate"`
	AllowFileSharing     bool   `json:"allowFileSharing"`
	AllowVoiceMessages   bool   `json:"allowVoiceMessages"`
}

// DefaultSettings settings for a new room
func DefaultSettings() Settings {
	return Settings{
		MaxMembers:         50,
		AllowFileSharing:   true,
		AllowVoiceMessages: true,
	}
}

// NewRoom create a room aggregate
func NewRoom(id, name, createdBy string) *Room {
	return &Room{
		ID:        id,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
		Settings:  DefaultSettings(),
		Messages:  []*Message{},
		Members:   map[string]*Member{},
	}
}

// FindMemberByUserID locate the member entry holding a persistent user id
func (r *Room) FindMemberByUserID(userID string) (string, bool) {
	for sid, m := range r.Members {
		if m.UserID == userID {
			return sid, true
		}
	}
	return "", false
}

// MemberList members ordered by join time
func (r *Room) MemberList() []*Member {
	list := make([]*Member, 0, len(r.Members))
	for _, m := range r.Members {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].SessionID < list[j].SessionID
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list
}

// FindMessage locate a message by id, newest first
func (r *Room) FindMessage(id string) *Message {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].ID == id {
			return r.Messages[i]
		}
	}
	return nil
}

// TailMessages the trailing n messages in log order
func (r *Room) TailMessages(n int) []*Message {
	if len(r.Messages) <= n {
		return r.Messages
	}
	return r.Messages[len(r.Messages)-n:]
}

// Clone deep copy for persistence, so saving never holds the room lock
func (r *Room) Clone() *Room {
	c := &Room{
		ID:        r.ID,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		Settings:  r.Settings,
		Messages:  make([]*Message, 0, len(r.Messages)),
		Members:   make(map[string]*Member, len(r.Members)),
	}
	if r.Settings.DisappearingMessages != nil {
		d := *r.Settings.DisappearingMessages
		c.Settings.DisappearingMessages = &d
	}
	for _, m := range r.Messages {
		c.Messages = append(c.Messages, m.Clone())
	}
	for sid, m := range r.Members {
		mc := *m
		c.Members[sid] = &mc
	}
	return c
}

// 可以被 update-settings 覆寫的欄位
var recognizedSettings = map[string]bool{
	"disappearingMessages": true,
	"maxMembers":           true,
	"isPrivate":            true,
	"allowFileSharing":     true,
	"allowVoiceMessages":   true,
}

// ApplySettingsPatch merge a flat json patch into settings. Absent keys keep
// their value, an explicit null turns disappearing messages off.
func (s *Settings) ApplySettingsPatch(raw json.RawMessage) error {
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(raw, &patch); err != nil {
		return err
	}

	for key, val := range patch {
		if !recognizedSettings[key] {
			continue
		}
		var err error
		switch key {
		case "disappearingMessages":
			err = json.Unmarshal(val, &s.DisappearingMessages)
		case "maxMembers":
			err = json.Unmarshal(val, &s.MaxMembers)
		case "isPrivate":
			err = json.Unmarshal(val, &s.IsPrivate)
		case "allowFileSharing":
			err = json.Unmarshal(val, &s.AllowFileSharing)
		case "allowVoiceMessages":
			err = json.Unmarshal(val, &s.AllowVoiceMessages)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
