package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/krishanu7/battleship-engine/config"
	"github.com/krishanu7/battleship-engine/internal/match"
	"github.com/krishanu7/battleship-engine/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
)

// matchwatch tails the notification channel, optionally for one match.
func main() {
	only := flag.String("match", "", "only show events for this match id")
	flag.Parse()

	cfg := config.LoadConfig()
	rdb, err := redis.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal("Failed to connect to redis", "err", err)
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pubsub := rdb.Subscribe(ctx, match.NotificationChannel)
	defer pubsub.Close()

	log.Info("Watching notifications...", "channel", match.NotificationChannel)
	ch := pubsub.Channel()
	for {
		var msg *goredis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				log.Warn("subscription closed")
				return
			}
			msg = m
		}
		var n match.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			log.Printf("Failed to unmarshal notification: %v", err)
			continue
		}
		if *only != "" && n.MatchID != *only {
			continue
		}
		fields := []interface{}{"match", n.MatchID, "round", n.Round, "player", n.Player}
		if n.Attack != nil {
			fields = append(fields, "target", n.Attack.Target.String(), "outcome", n.Attack.Outcome)
			if n.Attack.Sunk {
				fields = append(fields, "sunk", n.Attack.ShipType)
			}
		}
		log.Info(string(n.Type), fields...)
	}
}
