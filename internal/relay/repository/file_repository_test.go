package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"secure_chat_relay/internal/relay/domain"
	"secure_chat_relay/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func tempStore(t *testing.T) (RoomStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rooms.json")
	store, err := NewFileRoomStore(path)
	assert.NoError(t, err)
	return store, path
}

// 測試快照寫入再讀回
func TestFileRoomStore_RoundTrip(t *testing.T) {
	store, _ := tempStore(t)
	ctx := context.Background()

	ttl := int64(5000)
	disappear := time.Now().Add(time.Minute)
	edited := time.Now()

	room := domain.NewRoom("r-1", "Cell", "Alice")
	room.Settings.DisappearingMessages = &ttl
	room.Settings.IsPrivate = true
	room.Members["s-1"] = &domain.Member{SessionID: "s-1", UserID: "u-1", Name: "Alice", JoinedAt: time.Now()}
	room.Messages = append(room.Messages, &domain.Message{
		ID:          "m-1",
		RoomID:      "r-1",
		SenderID:    "s-1",
		SenderName:  "Alice",
		Content:     "opaque",
		Type:        domain.MessageText,
		Timestamp:   time.Now(),
		Reactions:   map[string][]string{"👍": {"s-2"}},
		ReadBy:      []string{"s-1"},
		Edited:      true,
		EditedAt:    &edited,
		DisappearAt: &disappear,
		IsEncrypted: true,
	})

	assert.NoError(t, store.SaveRooms(ctx, []*domain.Room{room}, []string{"r-1"}))

	rooms, err := store.LoadRooms(ctx)
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)

	got := rooms[0]
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "Cell", got.Name)
	assert.Equal(t, "Alice", got.CreatedBy)
	assert.NotNil(t, got.Settings.DisappearingMessages)
	assert.Equal(t, int64(5000), *got.Settings.DisappearingMessages)
	assert.True(t, got.Settings.IsPrivate)

	// 存檔裡的成員是 advisory，載入時一律丟棄
	assert.Empty(t, got.Members)

	assert.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Equal(t, "opaque", msg.Content)
	assert.Equal(t, []string{"s-2"}, msg.Reactions["👍"])
	assert.Equal(t, []string{"s-1"}, msg.ReadBy)
	assert.True(t, msg.Edited)
	assert.WithinDuration(t, edited, *msg.EditedAt, time.Millisecond)
	assert.WithinDuration(t, disappear, *msg.DisappearAt, time.Millisecond)
	assert.True(t, msg.IsEncrypted)
}

// 測試檔案不存在視為空店
func TestFileRoomStore_MissingFile(t *testing.T) {
	store, _ := tempStore(t)

	rooms, err := store.LoadRooms(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rooms)
}

// 測試壞掉的快照回報錯誤而不是 panic
func TestFileRoomStore_CorruptFile(t *testing.T) {
	logger.SetNewNop() // 停用 Logger 避免測試時輸出
	store, path := tempStore(t)

	assert.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	rooms, err := store.LoadRooms(context.Background())
	assert.Error(t, err)
	assert.Nil(t, rooms)
}

// 測試原子寫入不留暫存檔
func TestFileRoomStore_AtomicWrite(t *testing.T) {
	store, path := tempStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		room := domain.NewRoom("r-1", "Cell", "Alice")
		assert.NoError(t, store.SaveRooms(ctx, []*domain.Room{room}, []string{"r-1"}))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "rooms.json", entries[0].Name())
}

// 測試舊快照缺 reactions/readBy 欄位時載入後不為 nil
func TestFileRoomStore_NormalizesNils(t *testing.T) {
	store, path := tempStore(t)

	raw := `[
  {
    "id": "r-legacy",
    "name": "Legacy",
    "createdBy": "Alice",
    "createdAt": "2026-01-02T03:04:05Z",
    "settings": {"maxMembers": 50},
    "members": [],
    "messages": [
      {"id": "m-1", "roomId": "r-legacy", "senderId": "s-1", "content": "old", "type": "text", "timestamp": "2026-01-02T03:04:06Z"}
    ]
  }
]`
	assert.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	rooms, err := store.LoadRooms(context.Background())
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)

	msg := rooms[0].Messages[0]
	assert.NotNil(t, msg.Reactions)
	assert.NotNil(t, msg.ReadBy)
	assert.Empty(t, msg.Reactions)
	assert.Empty(t, msg.ReadBy)
}

// 測試多個房間按 id 排序寫出，重啟後順序穩定
func TestFileRoomStore_StableOrder(t *testing.T) {
	store, _ := tempStore(t)
	ctx := context.Background()

	rooms := []*domain.Room{
		domain.NewRoom("r-c", "C", "x"),
		domain.NewRoom("r-a", "A", "x"),
		domain.NewRoom("r-b", "B", "x"),
	}
	assert.NoError(t, store.SaveRooms(ctx, rooms, []string{"r-a", "r-b", "r-c"}))

	loaded, err := store.LoadRooms(ctx)
	assert.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.Equal(t, "r-a", loaded[0].ID)
	assert.Equal(t, "r-b", loaded[1].ID)
	assert.Equal(t, "r-c", loaded[2].ID)
}
