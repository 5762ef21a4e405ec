package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubJoinAndLeave(t *testing.T) {
	h := NewHub()
	a, b := NewClient(0, nil), NewClient(1, nil)

	room := h.Join("m1", a)
	assert.Same(t, room, h.Join("m1", b))
	assert.ElementsMatch(t, []int{0, 1}, room.Seats())

	h.Leave(a)
	_, ok := h.GetRoom("m1")
	assert.True(t, ok)
	h.Leave(b)
	_, ok = h.GetRoom("m1")
	assert.False(t, ok)

	_, open := <-a.Send
	assert.False(t, open)
}

func TestRoomReplacesSeat(t *testing.T) {
	h := NewHub()
	first, second := NewClient(0, nil), NewClient(0, nil)
	h.Join("m1", first)
	room := h.Join("m1", second)

	_, open := <-first.Send
	assert.False(t, open, "old connection is released")
	require.True(t, room.SendTo(0, []byte("hi")))
	assert.Equal(t, []byte("hi"), <-second.Send)

	h.Leave(first)
	_, ok := h.GetRoom("m1")
	assert.True(t, ok, "stale client does not unseat the new one")
}

func TestRoomSendToDropsWhenFull(t *testing.T) {
	room := NewRoom("m1")
	c := NewClient(1, nil)
	room.AddClient(c)
	for i := 0; i < sendBuffer; i++ {
		require.True(t, room.SendTo(1, []byte("x")))
	}
	assert.False(t, room.SendTo(1, []byte("x")))
	assert.False(t, room.SendTo(0, []byte("x")))
}

func TestRoomBroadcastSkipsSender(t *testing.T) {
	room := NewRoom("m1")
	a, b := NewClient(0, nil), NewClient(1, nil)
	room.AddClient(a)
	room.AddClient(b)

	room.Broadcast(0, []byte("turn"))
	assert.Len(t, a.Send, 0)
	assert.Equal(t, []byte("turn"), <-b.Send)
}
