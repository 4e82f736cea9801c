package domain

import (
	"time"

	"secure_chat_relay/pkg"
)

// MessageKind definition message kind
type MessageKind string

const (
	// MessageText ciphertext chat line
	MessageText MessageKind = "text"
	// MessageVoice in-band voice clip
	MessageVoice MessageKind = "voice"
	// MessageFile uploaded file reference
	MessageFile MessageKind = "file"
	// MessageImage uploaded image reference
	MessageImage MessageKind = "image"
	// MessageSystem system line
	MessageSystem MessageKind = "system"
)

// 刪除與到期的墓碑字串，客戶端依賴完全一致的內容
const (
	// DeletedMessageContent tombstone for a manual delete
	DeletedMessageContent = "This message was deleted"
	// DisappearedMessageContent tombstone for ttl redaction
	DisappearedMessageContent = "This message has disappeared"
)

// Message definition one log entry, append-only except redaction
type Message struct {
	ID           string              `json:"id"`
	RoomID       string              `json:"roomId"`
	SenderID     string              `json:"senderId"` // session id 快照
	SenderName   string              `json:"senderName"`
	SenderAvatar string              `json:"senderAvatar"`
	Content      string              `json:"content"` // 對 server 而言是不透明字串
	Type         MessageKind         `json:"type"`
	Timestamp    time.Time           `json:"timestamp"`
	ReplyTo      string              `json:"replyTo,omitempty"`
	Reactions    map[string][]string `json:"reactions"` // emoji -> session ids
	ReadBy       []string            `json:"readBy"`
	Edited       bool                `json:"edited"`
	EditedAt     *time.Time          `json:"editedAt,omitempty"`
	Deleted      bool                `json:"deleted"`
	DisappearAt  *time.Time          `json:"disappearAt,omitempty"`
	FileData     *FileData           `json:"fileData,omitempty"`
	IsEncrypted  bool                `json:"isEncrypted"`
}

// FileData descriptor for file/image references and in-band voice clips
type FileData struct {
	URL      string `json:"url,omitempty"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`

	// voice clip 專用
	AudioData string    `json:"audioData,omitempty"` // base64
	Duration  float64   `json:"duration,omitempty"`
	Waveform  []float64 `json:"waveform,omitempty"`
}

// ToggleReaction flip the session's mark under emoji. Empty buckets are
// removed so reactions never hold dead keys.
func (m *Message) ToggleReaction(sessionID, emoji string) {
	if m.Deleted {
		return
	}
	if m.Reactions == nil {
		m.Reactions = map[string][]string{}
	}
	bucket := m.Reactions[emoji]
	if pkg.Contains(bucket, sessionID) {
		bucket = pkg.Remove(bucket, sessionID)
		if len(bucket) == 0 {
			delete(m.Reactions, emoji)
		} else {
			m.Reactions[emoji] = bucket
		}
		return
	}
	m.Reactions[emoji] = append(bucket, sessionID)
}

// MarkReadBy record the session in readBy, reports whether it was new
func (m *Message) MarkReadBy(sessionID string) bool {
	if pkg.Contains(m.ReadBy, sessionID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, sessionID)
	return true
}

// Redact tombstone the message, content becomes the canonical string
func (m *Message) Redact(content string) {
	m.Deleted = true
	m.Content = content
}

// Clone deep copy, persistence snapshots must not alias live state
func (m *Message) Clone() *Message {
	c := *m
	if m.Reactions != nil {
		c.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, ids := range m.Reactions {
			c.Reactions[emoji] = append([]string(nil), ids...)
		}
	}
	c.ReadBy = append([]string(nil), m.ReadBy...)
	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}
	if m.DisappearAt != nil {
		t := *m.DisappearAt
		c.DisappearAt = &t
	}
	if m.FileData != nil {
		fd := *m.FileData
		fd.Waveform = append([]float64(nil), m.FileData.Waveform...)
		c.FileData = &fd
	}
	return &c
}
