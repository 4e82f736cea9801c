package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"secure_chat_relay/internal/relay/domain"
	errprocess "secure_chat_relay/pkg/err"
)

type fileRoomStore struct {
	path string
}

// NewFileRoomStore create the local snapshot variant, one json file holds
// the whole room set
func NewFileRoomStore(path string) (RoomStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileRoomStore{path: path}, nil
}

// roomRecord snapshot row. members persist as [sessionId, member] pairs but
// are advisory only, every session is dead after a restart.
type roomRecord struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CreatedBy string            `json:"createdBy"`
	CreatedAt time.Time         `json:"createdAt"`
	Settings  domain.Settings   `json:"settings"`
	Members   []memberPair      `json:"members"`
	Messages  []*domain.Message `json:"messages"`
}

// memberPair marshals as a two element array, [session_id, member]
type memberPair struct {
	SessionID string
	Member    *domain.Member
}

// MarshalJSON encode as ["sid", {...}]
func (p memberPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.SessionID, p.Member})
}

// UnmarshalJSON decode ["sid", {...}]
func (p *memberPair) UnmarshalJSON(b []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &p.SessionID); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Member)
}

// LoadRooms read the snapshot, a missing file is an empty store
func (s *fileRoomStore) LoadRooms(ctx context.Context) ([]*domain.Room, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []roomRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errprocess.Setf("snapshot %s is not parseable: %v", s.path, err)
	}

	rooms := make([]*domain.Room, 0, len(records))
	for _, rec := range records {
		room := &domain.Room{
			ID:        rec.ID,
			Name:      rec.Name,
			CreatedBy: rec.CreatedBy,
			CreatedAt: rec.CreatedAt,
			Settings:  rec.Settings,
			Messages:  rec.Messages,
			// 存檔裡的成員一律丟棄，session 重啟後全數失效
			Members: map[string]*domain.Member{},
		}
		if room.Messages == nil {
			room.Messages = []*domain.Message{}
		}
		for _, m := range room.Messages {
			if m.Reactions == nil {
				m.Reactions = map[string][]string{}
			}
			if m.ReadBy == nil {
				m.ReadBy = []string{}
			}
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// SaveRooms rewrite the whole snapshot, dirty is ignored here
func (s *fileRoomStore) SaveRooms(ctx context.Context, rooms []*domain.Room, dirty []string) error {
	records := make([]roomRecord, 0, len(rooms))
	for _, room := range rooms {
		rec := roomRecord{
			ID:        room.ID,
			Name:      room.Name,
			CreatedBy: room.CreatedBy,
			CreatedAt: room.CreatedAt,
			Settings:  room.Settings,
			Members:   make([]memberPair, 0, len(room.Members)),
			Messages:  room.Messages,
		}
		for _, m := range room.MemberList() {
			rec.Members = append(rec.Members, memberPair{SessionID: m.SessionID, Member: m})
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// Close nothing held open
func (s *fileRoomStore) Close(ctx context.Context) error {
	return nil
}

// writeFileAtomic temp file in the same dir, fsync, rename over the target,
// then fsync the dir so a crash never leaves a torn snapshot
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rooms-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
