package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/krishanu7/battleship-engine/config"
	"github.com/krishanu7/battleship-engine/db"
	"github.com/krishanu7/battleship-engine/internal/auth"
	"github.com/krishanu7/battleship-engine/internal/leaderboard"
	"github.com/krishanu7/battleship-engine/internal/match"
	"github.com/krishanu7/battleship-engine/internal/ws"
	"github.com/krishanu7/battleship-engine/pkg/redis"
	wsPkg "github.com/krishanu7/battleship-engine/pkg/websocket"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.LoadConfig()
	log.SetReportTimestamp(true)
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warn("unknown log level, keeping info", "level", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var conn *sql.DB
	if cfg.DBUrl != "" {
		var err error
		conn, err = sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			log.Fatal("Failed to open database", "err", err)
		}
		defer conn.Close()
		if err := db.Migrate(conn); err != nil {
			log.Fatal("Failed to migrate database", "err", err)
		}
	} else {
		log.Warn("DB_URL not set; accounts and tallies are disabled")
	}

	rdb, err := redis.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("Redis unavailable; state cache and live push are disabled", "err", err)
	} else {
		defer rdb.Close()
	}

	authService := auth.NewService(conn, cfg)
	var store match.Store
	if rdb != nil {
		store = match.NewRedisStore(rdb, cfg.MatchTTL)
	}
	var results match.ResultRecorder
	var board *leaderboard.Service
	if conn != nil {
		board = leaderboard.NewService(conn)
		results = board
	}
	matchService := match.NewService(store, results, match.Defaults{
		TurnTimeout:    cfg.TurnTimeout,
		BotDelay:       cfg.BotDelay,
		ExtraTurnOnHit: cfg.ExtraTurnOnHit,
	})
	defer matchService.Shutdown()

	mux := http.NewServeMux()
	match.NewHandler(matchService, authService).Routes(mux)
	if conn != nil {
		authHandler := auth.NewAuthHandler(authService)
		mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
		mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

		lb := leaderboard.NewHandler(board)
		mux.HandleFunc("GET /api/v1/leaderboard", lb.Leaderboard)
		mux.HandleFunc("GET /api/v1/records/{id}", lb.MatchRecord)
	}

	hub := wsPkg.NewHub()
	mux.HandleFunc("GET /ws/matches/{id}", ws.NewHandler(hub, matchService, authService).ServeWS)
	if rdb != nil {
		worker := ws.NewNotificationWorker(rdb, hub, matchService)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification worker stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Server started", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "err", err)
	}
}
