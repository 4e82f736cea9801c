package domain

import (
	"encoding/json"
	"time"
)

// EventKind websocket event name, kebab-case on the wire
type EventKind string

// inbound kinds
const (
	// JoinRoom websocket event join-room
	JoinRoom EventKind = "join-room"
	// SendMessage websocket event send-message
	SendMessage EventKind = "send-message"
	// VoiceMessage websocket event voice-message
	VoiceMessage EventKind = "voice-message"
	// TypingStart websocket event typing-start
	TypingStart EventKind = "typing-start"
	// TypingStop websocket event typing-stop
	TypingStop EventKind = "typing-stop"
	// AddReaction websocket event add-reaction
	AddReaction EventKind = "add-reaction"
	// MarkRead websocket event mark-read
	MarkRead EventKind = "mark-read"
	// EditMessage websocket event edit-message
	EditMessage EventKind = "edit-message"
	// DeleteMessage websocket event delete-message
	DeleteMessage EventKind = "delete-message"
	// UpdateSettings websocket event update-settings
	UpdateSettings EventKind = "update-settings"
	// KickMember websocket event kick-member
	KickMember EventKind = "kick-member"
	// JoinVoice websocket event join-voice
	JoinVoice EventKind = "join-voice"
	// LeaveVoice websocket event leave-voice
	LeaveVoice EventKind = "leave-voice"
	// HandshakeInit websocket event handshake-init
	HandshakeInit EventKind = "handshake-init"
	// HandshakeResponse websocket event handshake-response
	HandshakeResponse EventKind = "handshake-response"
)

// mirrored kinds, same name both directions
const (
	// CanvasStroke websocket event canvas-stroke
	CanvasStroke EventKind = "canvas-stroke"
	// VoiceSignal websocket event voice-signal
	VoiceSignal EventKind = "voice-signal"
	// CallSignal websocket event call-signal
	CallSignal EventKind = "call-signal"
	// CallInvite websocket event call-invite
	CallInvite EventKind = "call-invite"
	// CallAccept websocket event call-accept
	CallAccept EventKind = "call-accept"
	// CallReject websocket event call-reject
	CallReject EventKind = "call-reject"
	// CallEnd websocket event call-end
	CallEnd EventKind = "call-end"
	// CallMediaHandshake websocket event call-media-handshake
	CallMediaHandshake EventKind = "call-media-handshake"
)

// outbound kinds
const (
	// RoomJoined websocket event room-joined
	RoomJoined EventKind = "room-joined"
	// NewMessage websocket event message
	NewMessage EventKind = "message"
	// UserJoined websocket event user-joined
	UserJoined EventKind = "user-joined"
	// UserLeft websocket event user-left
	UserLeft EventKind = "user-left"
	// UserTyping websocket event user-typing
	UserTyping EventKind = "user-typing"
	// UserStoppedTyping websocket event user-stopped-typing
	UserStoppedTyping EventKind = "user-stopped-typing"
	// ReactionUpdated websocket event reaction-updated
	ReactionUpdated EventKind = "reaction-updated"
	// MessageEdited websocket event message-edited
	MessageEdited EventKind = "message-edited"
	// MessageDeleted websocket event message-deleted
	MessageDeleted EventKind = "message-deleted"
	// MessageRead websocket event message-read
	MessageRead EventKind = "message-read"
	// SettingsUpdated websocket event settings-updated
	SettingsUpdated EventKind = "settings-updated"
	// Kicked websocket event kicked
	Kicked EventKind = "kicked"
	// HandshakeRequest websocket event handshake-request
	HandshakeRequest EventKind = "handshake-request"
	// HandshakeComplete websocket event handshake-complete
	HandshakeComplete EventKind = "handshake-complete"
	// UserJoinedVoice websocket event user-joined-voice
	UserJoinedVoice EventKind = "user-joined-voice"
	// UserLeftVoice websocket event user-left-voice
	UserLeftVoice EventKind = "user-left-voice"
)

// Event one frame on the socket: event name plus exactly one json argument
type Event struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeEvent marshal an outbound frame
func EncodeEvent(kind EventKind, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: kind, Data: raw})
}

// JoinRoomPayload join-room request
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Avatar   string `json:"avatar"`
	Color    string `json:"color"`
	RoomName string `json:"roomName"` // 只有隱式建房會用到
}

// SendMessagePayload send-message request
type SendMessagePayload struct {
	Content     string      `json:"content"`
	Type        MessageKind `json:"type"`
	ReplyTo     string      `json:"replyTo"`
	FileData    *FileData   `json:"fileData"`
	IsEncrypted bool        `json:"isEncrypted"`
}

// VoiceMessagePayload voice-message request, clip travels in-band as base64
type VoiceMessagePayload struct {
	Content     string    `json:"content"`
	FileData    *FileData `json:"fileData"`
	IsEncrypted bool      `json:"isEncrypted"`
}

// ReactionPayload add-reaction request
type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// MarkReadPayload mark-read request
type MarkReadPayload struct {
	MessageIDs []string `json:"messageIds"`
}

// EditMessagePayload edit-message request
type EditMessagePayload struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
}

// DeleteMessagePayload delete-message request
type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// KickMemberPayload kick-member request
type KickMemberPayload struct {
	TargetID string `json:"targetId"`
}

// CanvasStrokePayload canvas-stroke request, stroke stays opaque
type CanvasStrokePayload struct {
	Stroke json.RawMessage `json:"stroke"`
}

// SignalPayload voice-signal / call-signal request, signal stays opaque
type SignalPayload struct {
	TargetID string          `json:"targetId"`
	Signal   json.RawMessage `json:"signal"`
}

// CallInvitePayload call-invite request
type CallInvitePayload struct {
	TargetID string `json:"targetId"`
	CallType string `json:"callType"`
}

// CallTargetPayload call-accept / call-reject / call-end request
type CallTargetPayload struct {
	TargetID string `json:"targetId"`
}

// MediaHandshakePayload call-media-handshake request, key material opaque
type MediaHandshakePayload struct {
	TargetID    string `json:"targetId"`
	MediaPk     string `json:"mediaPk,omitempty"`
	MediaSecret string `json:"mediaSecret,omitempty"`
}

// HandshakeInitPayload handshake-init request
type HandshakeInitPayload struct {
	PK string `json:"pk"`
}

// HandshakeResponsePayload handshake-response request
type HandshakeResponsePayload struct {
	TargetID     string `json:"targetId"`
	Ciphertext   string `json:"ciphertext"`
	EncryptedKey string `json:"encryptedKey"`
}

// RoomJoinedPayload room-joined reply to the joiner
type RoomJoinedPayload struct {
	RoomName string     `json:"roomName"`
	Members  []*Member  `json:"members"`
	Messages []*Message `json:"messages"`
	Settings Settings   `json:"settings"`
}

// UserJoinedPayload user-joined broadcast
type UserJoinedPayload struct {
	User *Member `json:"user"`
}

// UserRef minimal member reference
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserLeftPayload user-left broadcast with the refreshed member list
type UserLeftPayload struct {
	User    UserRef   `json:"user"`
	Members []*Member `json:"members"`
}

// PresencePayload user-typing / user-stopped-typing / voice presence
type PresencePayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// ReactionUpdatedPayload reaction-updated broadcast, full post-image
type ReactionUpdatedPayload struct {
	MessageID string              `json:"messageId"`
	Reactions map[string][]string `json:"reactions"`
}

// MessageEditedPayload message-edited broadcast
type MessageEditedPayload struct {
	MessageID  string    `json:"messageId"`
	NewContent string    `json:"newContent"`
	EditedAt   time.Time `json:"editedAt"`
}

// MessageDeletedPayload message-deleted broadcast
type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

// MessageReadPayload message-read broadcast, goes to everyone but the reader
type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
}

// SettingsUpdatedPayload settings-updated broadcast, full post-image
type SettingsUpdatedPayload struct {
	Settings Settings `json:"settings"`
}

// KickedPayload kicked notice to the evicted session
type KickedPayload struct {
	RoomID string `json:"roomId"`
}

// HandshakeRequestPayload handshake-request broadcast
type HandshakeRequestPayload struct {
	SenderID string `json:"senderId"`
	PK       string `json:"pk"`
}

// HandshakeCompletePayload handshake-complete, targeted at the joiner
type HandshakeCompletePayload struct {
	Ciphertext   string `json:"ciphertext"`
	EncryptedKey string `json:"encryptedKey"`
}

// CanvasStrokeOut canvas-stroke broadcast
type CanvasStrokeOut struct {
	SenderID string          `json:"senderId"`
	Stroke   json.RawMessage `json:"stroke"`
}

// SignalOut voice-signal / call-signal relay
type SignalOut struct {
	SenderID string          `json:"senderId"`
	Signal   json.RawMessage `json:"signal"`
}

// CallInviteOut call-invite relay
type CallInviteOut struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	CallType   string `json:"callType"`
}

// CallEventOut call-accept / call-reject / call-end relay
type CallEventOut struct {
	SenderID string `json:"senderId"`
}

// MediaHandshakeOut call-media-handshake relay
type MediaHandshakeOut struct {
	SenderID    string `json:"senderId"`
	MediaPk     string `json:"mediaPk,omitempty"`
	MediaSecret string `json:"mediaSecret,omitempty"`
}
