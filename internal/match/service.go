package match

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dolthub/swiss"
	"github.com/google/uuid"
	"github.com/krishanu7/battleship-engine/db"
	"github.com/krishanu7/battleship-engine/internal/game"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrUnauthorized  = errors.New("unauthorized")
)

const storeTimeout = 5 * time.Second

// ResultRecorder persists the tally after each finished round.
type ResultRecorder interface {
	RecordRound(ctx context.Context, rec db.MatchRecord, roundWinner int) error
}

// Defaults are the engine options applied to every new match.
type Defaults struct {
	TurnTimeout    time.Duration
	BotDelay       time.Duration
	ExtraTurnOnHit bool

	// Clock and Rand are overridden in tests.
	Clock game.Clock
	Rand  func() *rand.Rand
}

type CreateRequest struct {
	Mode            string `json:"mode"`
	Player1Name     string `json:"player1_name"`
	Player2Name     string `json:"player2_name"`
	BestOf          int    `json:"best_of"`
	RandomPlacement bool   `json:"random_placement"`
}

// Service is the registry of live matches. Each match serializes its own
// operations; the registry lock only guards the map.
type Service struct {
	mu       sync.RWMutex
	matches  *swiss.Map[string, *game.Match]
	store    Store
	results  ResultRecorder
	defaults Defaults
	log      *log.Logger

	// persistMu orders state writes against the drop in Delete.
	persistMu sync.Mutex
}

// NewService accepts a nil store or recorder; the matching concern is then
// skipped.
func NewService(store Store, results ResultRecorder, defaults Defaults) *Service {
	return &Service{
		matches:  swiss.NewMap[string, *game.Match](64),
		store:    store,
		results:  results,
		defaults: defaults,
		log:      log.Default().WithPrefix("match"),
	}
}

func (s *Service) Create(req CreateRequest) (*game.Match, error) {
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	opts := game.Options{
		ID:              uuid.NewString(),
		Mode:            mode,
		Player1Name:     req.Player1Name,
		Player2Name:     req.Player2Name,
		BestOf:          req.BestOf,
		TurnTimeout:     s.defaults.TurnTimeout,
		BotDelay:        s.defaults.BotDelay,
		ExtraTurnOnHit:  s.defaults.ExtraTurnOnHit,
		RandomPlacement: req.RandomPlacement,
		Clock:           s.defaults.Clock,
		Logger:          s.log,
	}
	if s.defaults.Rand != nil {
		opts.Rand = s.defaults.Rand()
	}
	m, err := game.NewMatch(opts)
	if err != nil {
		return nil, err
	}
	m.OnEvent(func(e game.Event) { s.handleEvent(m, e) })

	s.mu.Lock()
	s.matches.Put(m.ID(), m)
	s.mu.Unlock()

	if err := m.Start(); err != nil {
		s.Delete(m.ID())
		return nil, err
	}
	s.log.Info("match created", "id", m.ID(), "mode", mode, "best_of", m.Score().BestOf)
	return m, nil
}

func (s *Service) Get(id string) (*game.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches.Get(id)
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches.Count()
}

// Snapshot returns the viewer's picture of a match. Matches not held by this
// process are served from the store.
func (s *Service) Snapshot(ctx context.Context, id string, viewer int) (game.Snapshot, error) {
	m, err := s.Get(id)
	if errors.Is(err, ErrMatchNotFound) && s.store != nil {
		return s.store.Load(ctx, id, viewer)
	}
	if err != nil {
		return game.Snapshot{}, err
	}
	return m.Snapshot(viewer)
}

func (s *Service) Place(id string, player int, start game.Coord, o game.Orientation) error {
	m, err := s.Get(id)
	if err != nil {
		return err
	}
	return m.Place(player, start, o)
}

func (s *Service) AutoPlace(id string, player int) error {
	m, err := s.Get(id)
	if err != nil {
		return err
	}
	return m.AutoPlace(player)
}

func (s *Service) Attack(id string, player int, target game.Coord) (game.AttackResult, error) {
	m, err := s.Get(id)
	if err != nil {
		return game.AttackResult{}, err
	}
	return m.Attack(player, target)
}

func (s *Service) NextRound(id string) error {
	m, err := s.Get(id)
	if err != nil {
		return err
	}
	return m.NextRound()
}

func (s *Service) Reset(id string) error {
	m, err := s.Get(id)
	if err != nil {
		return err
	}
	return m.Reset()
}

// Delete closes the match and forgets it.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	m, ok := s.matches.Get(id)
	if ok {
		s.matches.Delete(id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrMatchNotFound
	}
	m.Close()

	if s.store != nil {
		s.persistMu.Lock()
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		err := s.store.Delete(ctx, id)
		cancel()
		s.persistMu.Unlock()
		if err != nil {
			s.log.Warn("failed to drop stored state", "id", id, "err", err)
		}
	}
	s.log.Info("match deleted", "id", id)
	return nil
}

// Shutdown closes every live match.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches.Iter(func(id string, m *game.Match) bool {
		m.Close()
		return false
	})
	s.matches = swiss.NewMap[string, *game.Match](64)
}

// handleEvent runs outside the match lock, on whichever goroutine produced
// the event.
func (s *Service) handleEvent(m *game.Match, e game.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if s.store != nil && !s.persist(ctx, m, e) {
		return
	}

	if s.results != nil && e.Type == game.EventRoundOver {
		if err := s.results.RecordRound(ctx, record(m), e.Player); err != nil {
			s.log.Error("failed to record round", "id", e.MatchID, "err", err)
		}
	}
}

// persist saves both views and publishes the event. A match closed by
// Delete is skipped so its dropped state is not written back.
func (s *Service) persist(ctx context.Context, m *game.Match, e game.Event) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if m.Closed() {
		return true
	}
	var snaps [2]game.Snapshot
	for p := range snaps {
		snap, err := m.Snapshot(p)
		if err != nil {
			s.log.Error("failed to snapshot", "id", e.MatchID, "err", err)
			return false
		}
		snaps[p] = snap
	}
	if err := s.store.Save(ctx, e.MatchID, snaps); err != nil {
		s.log.Error("failed to save state", "id", e.MatchID, "err", err)
	}
	n := Notification{Type: e.Type, MatchID: e.MatchID, Player: e.Player, Round: e.Round, Attack: e.Attack}
	if err := s.store.Publish(ctx, n); err != nil {
		s.log.Error("failed to publish", "id", e.MatchID, "err", err)
	}
	return true
}

func record(m *game.Match) db.MatchRecord {
	score := m.Score()
	names := m.Names()
	rec := db.MatchRecord{
		ID:      m.ID(),
		Mode:    string(m.Mode()),
		Player1: names[game.Player1],
		Player2: names[game.Player2],
		BestOf:  score.BestOf,
		WinsP1:  score.Wins[game.Player1],
		WinsP2:  score.Wins[game.Player2],
	}
	if w, ok := score.MatchWinner(); ok {
		rec.Winner = &w
	}
	return rec
}
