package repository

import (
	"context"

	"secure_chat_relay/internal/relay/domain"
)

// RoomStore definition persistence adapter. Two variants exist: the local
// json snapshot and the mongo document store, picked by env at startup.
// rooms is always the full copied-out room set, dirty the ids that changed
// since the last save. Document stores upsert the dirty subset, the
// snapshot file rewrites everything.
type RoomStore interface {
	LoadRooms(ctx context.Context) ([]*domain.Room, error)
	SaveRooms(ctx context.Context, rooms []*domain.Room, dirty []string) error
	Close(ctx context.Context) error
}
