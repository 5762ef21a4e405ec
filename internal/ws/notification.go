package ws

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/krishanu7/battleship-engine/internal/game"
	"github.com/krishanu7/battleship-engine/internal/match"
	wsPkg "github.com/krishanu7/battleship-engine/pkg/websocket"
	"github.com/redis/go-redis/v9"
)

// NotificationWorker turns match notifications into per-seat state pushes.
type NotificationWorker struct {
	RedisClient *redis.Client
	Hub         *wsPkg.Hub
	matches     Matches
}

func NewNotificationWorker(rdb *redis.Client, hub *wsPkg.Hub, matches Matches) *NotificationWorker {
	return &NotificationWorker{
		RedisClient: rdb,
		Hub:         hub,
		matches:     matches,
	}
}

// Subscribe waits until the channel subscription is confirmed.
func (w *NotificationWorker) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	pubsub := w.RedisClient.Subscribe(ctx, match.NotificationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}
	return pubsub, nil
}

func (w *NotificationWorker) Run(ctx context.Context) error {
	log.Info("Notification worker starting...")
	pubsub, err := w.Subscribe(ctx)
	if err != nil {
		return err
	}
	return w.Consume(ctx, pubsub)
}

// Consume handles messages until ctx is cancelled or the subscription
// closes, then closes pubsub.
func (w *NotificationWorker) Consume(ctx context.Context, pubsub *redis.PubSub) error {
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return redis.ErrClosed
			}
			var n match.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				log.Printf("Failed to unmarshal notification: %v", err)
				continue
			}
			w.Push(ctx, n)
		}
	}
}

// Push sends each seat connected to the match its own snapshot.
func (w *NotificationWorker) Push(ctx context.Context, n match.Notification) int {
	room, ok := w.Hub.GetRoom(n.MatchID)
	if !ok {
		return 0
	}
	event := game.Event{MatchID: n.MatchID, Type: n.Type, Player: n.Player, Round: n.Round, Attack: n.Attack}
	sent := 0
	for _, seat := range room.Seats() {
		snap, err := w.matches.Snapshot(ctx, n.MatchID, seat)
		if err != nil {
			log.Warn("no state to push", "match", n.MatchID, "seat", seat, "err", err)
			continue
		}
		data, err := json.Marshal(ServerMessage{Type: "state", Event: &event, State: &snap})
		if err != nil {
			log.Printf("Failed to marshal state: %v", err)
			continue
		}
		if room.SendTo(seat, data) {
			sent++
		} else {
			log.Printf("Failed to send notification to seat %d of match %s", seat, n.MatchID)
		}
	}
	return sent
}
