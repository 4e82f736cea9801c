package repository

import (
	"context"
	"time"

	"secure_chat_relay/internal/relay/domain"
	"secure_chat_relay/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const roomsCollection = "rooms"

type mongoRoomStore struct {
	roomsColl *mongo.Collection
}

// NewMongoRoomStore create the document store variant, one doc per room
func NewMongoRoomStore(db *mongo.Database) RoomStore {
	return &mongoRoomStore{
		roomsColl: db.Collection(roomsCollection),
	}
}

// roomDoc room document, timestamps kept as ISO-8601 strings
type roomDoc struct {
	ID        string       `bson:"_id"`
	Name      string       `bson:"name"`
	CreatedBy string       `bson:"createdBy"`
	CreatedAt string       `bson:"createdAt"`
	Settings  settingsDoc  `bson:"settings"`
	Messages  []messageDoc `bson:"messages"`
}

type settingsDoc struct {
	DisappearingMessages *int64 `bson:"disappearingMessages"`
	MaxMembers           int    `bson:"maxMembers"`
	IsPrivate            bool   `bson:"isPrivate"`
	AllowFileSharing     bool   `bson:"allowFileSharing"`
	AllowVoiceMessages   bool   `bson:"allowVoiceMessages"`
}

type messageDoc struct {
	ID           string              `bson:"id"`
	RoomID       string              `bson:"roomId"`
	SenderID     string              `bson:"senderId"`
	SenderName   string              `bson:"senderName"`
	SenderAvatar string              `bson:"senderAvatar"`
	Content      string              `bson:"content"`
	Type         string              `bson:"type"`
	Timestamp    string              `bson:"timestamp"`
	ReplyTo      string              `bson:"replyTo,omitempty"`
	Reactions    map[string][]string `bson:"reactions"`
	ReadBy       []string            `bson:"readBy"`
	Edited       bool                `bson:"edited"`
	EditedAt     string              `bson:"editedAt,omitempty"`
	Deleted      bool                `bson:"deleted"`
	DisappearAt  string              `bson:"disappearAt,omitempty"`
	FileData     *fileDataDoc        `bson:"fileData,omitempty"`
	IsEncrypted  bool                `bson:"isEncrypted"`
}

type fileDataDoc struct {
	URL       string    `bson:"url,omitempty"`
	Name      string    `bson:"name,omitempty"`
	Size      int64     `bson:"size,omitempty"`
	Mimetype  string    `bson:"mimetype,omitempty"`
	AudioData string    `bson:"audioData,omitempty"`
	Duration  float64   `bson:"duration,omitempty"`
	Waveform  []float64 `bson:"waveform,omitempty"`
}

// LoadRooms read every room document back into aggregates
func (s *mongoRoomStore) LoadRooms(ctx context.Context) ([]*domain.Room, error) {
	cursor, err := s.roomsColl.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*domain.Room
	for cursor.Next(ctx) {
		var doc roomDoc
		if err := cursor.Decode(&doc); err != nil {
			logger.Log.Errorf("skip undecodable room document", err)
			continue
		}
		rooms = append(rooms, doc.toDomain())
	}
	return rooms, cursor.Err()
}

// SaveRooms batch upsert of every dirty room
func (s *mongoRoomStore) SaveRooms(ctx context.Context, rooms []*domain.Room, dirty []string) error {
	dirtySet := make(map[string]bool, len(dirty))
	for _, id := range dirty {
		dirtySet[id] = true
	}

	var models []mongo.WriteModel
	for _, room := range rooms {
		if !dirtySet[room.ID] {
			continue
		}
		doc := toRoomDoc(room)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}

	_, err := s.roomsColl.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

// Close nothing to do, the shared client is closed by the caller
func (s *mongoRoomStore) Close(ctx context.Context) error {
	return nil
}

func toRoomDoc(r *domain.Room) roomDoc {
	doc := roomDoc{
		ID:        r.ID,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		CreatedAt: fmtTime(r.CreatedAt),
		Settings: settingsDoc{
			DisappearingMessages: r.Settings.DisappearingMessages,
			MaxMembers:           r.Settings.MaxMembers,
			IsPrivate:            r.Settings.IsPrivate,
			AllowFileSharing:     r.Settings.AllowFileSharing,
			AllowVoiceMessages:   r.Settings.AllowVoiceMessages,
		},
		Messages: make([]messageDoc, 0, len(r.Messages)),
	}
	for _, m := range r.Messages {
		doc.Messages = append(doc.Messages, toMessageDoc(m))
	}
	return doc
}

func toMessageDoc(m *domain.Message) messageDoc {
	doc := messageDoc{
		ID:           m.ID,
		RoomID:       m.RoomID,
		SenderID:     m.SenderID,
		SenderName:   m.SenderName,
		SenderAvatar: m.SenderAvatar,
		Content:      m.Content,
		Type:         string(m.Type),
		Timestamp:    fmtTime(m.Timestamp),
		ReplyTo:      m.ReplyTo,
		Reactions:    m.Reactions,
		ReadBy:       m.ReadBy,
		Edited:       m.Edited,
		Deleted:      m.Deleted,
		IsEncrypted:  m.IsEncrypted,
	}
	if m.EditedAt != nil {
		doc.EditedAt = fmtTime(*m.EditedAt)
	}
	if m.DisappearAt != nil {
		doc.DisappearAt = fmtTime(*m.DisappearAt)
	}
	if m.FileData != nil {
		doc.FileData = &fileDataDoc{
			URL:       m.FileData.URL,
			Name:      m.FileData.Name,
			Size:      m.FileData.Size,
			Mimetype:  m.FileData.Mimetype,
			AudioData: m.FileData.AudioData,
			Duration:  m.FileData.Duration,
			Waveform:  m.FileData.Waveform,
		}
	}
	return doc
}

func (d roomDoc) toDomain() *domain.Room {
	room := &domain.Room{
		ID:        d.ID,
		Name:      d.Name,
		CreatedBy: d.CreatedBy,
		CreatedAt: parseTime(d.CreatedAt),
		Settings: domain.Settings{
			DisappearingMessages: d.Settings.DisappearingMessages,
			MaxMembers:           d.Settings.MaxMembers,
			IsPrivate:            d.Settings.IsPrivate,
			AllowFileSharing:     d.Settings.AllowFileSharing,
			AllowVoiceMessages:   d.Settings.AllowVoiceMessages,
		},
		Messages: make([]*domain.Message, 0, len(d.Messages)),
		Members:  map[string]*domain.Member{},
	}
	for _, md := range d.Messages {
		room.Messages = append(room.Messages, md.toDomain())
	}
	return room
}

func (d messageDoc) toDomain() *domain.Message {
	m := &domain.Message{
		ID:           d.ID,
		RoomID:       d.RoomID,
		SenderID:     d.SenderID,
		SenderName:   d.SenderName,
		SenderAvatar: d.SenderAvatar,
		Content:      d.Content,
		Type:         domain.MessageKind(d.Type),
		Timestamp:    parseTime(d.Timestamp),
		ReplyTo:      d.ReplyTo,
		Reactions:    d.Reactions,
		ReadBy:       d.ReadBy,
		Edited:       d.Edited,
		Deleted:      d.Deleted,
		IsEncrypted:  d.IsEncrypted,
	}
	if m.Reactions == nil {
		m.Reactions = map[string][]string{}
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
	if d.EditedAt != "" {
		t := parseTime(d.EditedAt)
		m.EditedAt = &t
	}
	if d.DisappearAt != "" {
		t := parseTime(d.DisappearAt)
		m.DisappearAt = &t
	}
	if d.FileData != nil {
		m.FileData = &domain.FileData{
			URL:       d.FileData.URL,
			Name:      d.FileData.Name,
			Size:      d.FileData.Size,
			Mimetype:  d.FileData.Mimetype,
			AudioData: d.FileData.AudioData,
			Duration:  d.FileData.Duration,
			Waveform:  d.FileData.Waveform,
		}
	}
	return m
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		logger.Log.Debug("unparseable stored timestamp, using zero time: " + s)
		return time.Time{}
	}
	return t
}
