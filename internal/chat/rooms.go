package chat

import (
	"sync"

	"github.com/nibblemarket/go-chatclient/internal/types"
)

// RoomDirectory caches the viewer's conversations. A fetch replaces the cache
// wholesale; push events merge in via Upsert. A failed fetch never clears
// previously cached rooms.
type RoomDirectory struct {
	mu      sync.RWMutex
	rooms   []types.Room
	loaded  bool
	lastErr string
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{}
}

func (d *RoomDirectory) Replace(rooms []types.Room) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rooms = make([]types.Room, len(rooms))
	copy(d.rooms, rooms)
	d.loaded = true
	d.lastErr = ""
}

// Upsert updates the room with a matching chatroomId in place, or appends it
// if none exists. Push events may carry partial rooms, so zero-valued fields
// in the update never overwrite known data.
func (d *RoomDirectory) Upsert(room types.Room) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.rooms {
		if d.rooms[i].ChatroomId != room.ChatroomId {
			continue
		}

		if room.CustomerId != 0 {
			d.rooms[i].CustomerId = room.CustomerId
		}
		if room.SellerId != 0 {
			d.rooms[i].SellerId = room.SellerId
		}
		if !room.CreatedAt.IsZero() {
			d.rooms[i].CreatedAt = room.CreatedAt
		}
		if room.Seller != nil {
			d.rooms[i].Seller = room.Seller
		}
		if room.Customer != nil {
			d.rooms[i].Customer = room.Customer
		}
		return
	}

	d.rooms = append(d.rooms, room)
}

func (d *RoomDirectory) Get(roomId int) (types.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, room := range d.rooms {
		if room.ChatroomId == roomId {
			return room, true
		}
	}

	return types.Room{}, false
}

// Rooms returns a snapshot of the cached rooms.
func (d *RoomDirectory) Rooms() []types.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]types.Room, len(d.rooms))
	copy(rooms, d.rooms)
	return rooms
}

func (d *RoomDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.rooms)
}

// Loaded reports whether the first fetch has completed.
func (d *RoomDirectory) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.loaded
}

func (d *RoomDirectory) SetError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastErr = msg
}

func (d *RoomDirectory) Err() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.lastErr
}
