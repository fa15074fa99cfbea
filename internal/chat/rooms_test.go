package chat

import (
	"testing"
	"time"

	"github.com/nibblemarket/go-chatclient/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomDirectoryReplace(t *testing.T) {
	d := NewRoomDirectory()
	assert.False(t, d.Loaded(), "expected directory to start unloaded")

	d.Replace([]types.Room{
		{ChatroomId: 1, CustomerId: 10, SellerId: 20},
		{ChatroomId: 2, CustomerId: 10, SellerId: 21},
	})

	assert.True(t, d.Loaded(), "expected directory to be loaded after replace")
	assert.Equal(t, 2, d.Len(), "expected two rooms")

	// Replace is a full refresh, not a merge.
	d.Replace([]types.Room{
		{ChatroomId: 3, CustomerId: 10, SellerId: 22},
	})

	assert.Equal(t, 1, d.Len(), "expected replace to drop previous contents")
	_, ok := d.Get(1)
	assert.False(t, ok, "expected room 1 to be gone after replace")
}

func TestRoomDirectoryUpsert(t *testing.T) {
	t.Run("appends unknown room", func(t *testing.T) {
		d := NewRoomDirectory()
		d.Upsert(types.Room{ChatroomId: 1, CustomerId: 10, SellerId: 20})

		assert.Equal(t, 1, d.Len(), "expected one room after upsert")
	})

	t.Run("idempotent by chatroom id", func(t *testing.T) {
		d := NewRoomDirectory()
		room := types.Room{ChatroomId: 1, CustomerId: 10, SellerId: 20}

		d.Upsert(room)
		d.Upsert(room)

		assert.Equal(t, 1, d.Len(), "expected exactly one entry for the chatroom id")
	})

	t.Run("updates in place preserving known fields", func(t *testing.T) {
		d := NewRoomDirectory()
		created := time.Now()
		d.Upsert(types.Room{
			ChatroomId: 1,
			CustomerId: 10,
			SellerId:   20,
			CreatedAt:  created,
			Seller:     &types.SellerSummary{Id: 20, BusinessName: "Corner Deli"},
		})

		// A partial push update must not wipe fields it does not carry.
		d.Upsert(types.Room{
			ChatroomId: 1,
			Seller:     &types.SellerSummary{Id: 20, BusinessName: "Corner Deli & Co"},
		})

		room, ok := d.Get(1)
		require.True(t, ok, "expected room to exist")
		assert.Equal(t, 10, room.CustomerId, "expected customer id preserved")
		assert.Equal(t, 20, room.SellerId, "expected seller id preserved")
		assert.Equal(t, created, room.CreatedAt, "expected created at preserved")
		assert.Equal(t, "Corner Deli & Co", room.Seller.BusinessName, "expected seller summary updated")
	})
}

func TestRoomDirectoryErrorDoesNotClear(t *testing.T) {
	d := NewRoomDirectory()
	d.Replace([]types.Room{{ChatroomId: 1}})

	d.SetError("failed to load conversations")

	assert.Equal(t, 1, d.Len(), "expected cached rooms untouched by error")
	assert.Equal(t, "failed to load conversations", d.Err(), "expected error recorded")

	d.Replace([]types.Room{{ChatroomId: 1}, {ChatroomId: 2}})
	assert.Empty(t, d.Err(), "expected error cleared by successful replace")
}

func TestRoomDirectorySnapshot(t *testing.T) {
	d := NewRoomDirectory()
	d.Replace([]types.Room{{ChatroomId: 1}})

	rooms := d.Rooms()
	rooms[0].ChatroomId = 99

	room, ok := d.Get(1)
	assert.True(t, ok, "expected directory unchanged by snapshot mutation")
	assert.Equal(t, 1, room.ChatroomId, "expected original chatroom id")
}
