package game

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultTurnTimeout = 120 * time.Second
	DefaultBotDelay    = time.Second
	BotName            = "AI"
)

type Options struct {
	ID          string
	Mode        Mode
	Player1Name string
	Player2Name string
	BestOf      int

	// TurnTimeout is the countdown for the active player; zero disables it.
	TurnTimeout time.Duration
	BotDelay    time.Duration

	ExtraTurnOnHit  bool
	RandomPlacement bool

	Clock  Clock
	Rand   *rand.Rand
	Logger *log.Logger
}

type EventType string

const (
	EventRoundStarted EventType = "round_started"
	EventShipPlaced   EventType = "ship_placed"
	EventBattle       EventType = "battle_started"
	EventAttack       EventType = "attack"
	EventTimeout      EventType = "turn_timeout"
	EventRoundOver    EventType = "round_over"
	EventMatchOver    EventType = "match_over"
)

// Event describes one accepted state change.
type Event struct {
	MatchID string        `json:"match_id"`
	Type    EventType     `json:"type"`
	Player  int           `json:"player"`
	Round   int           `json:"round"`
	Attack  *AttackResult `json:"attack,omitempty"`
}

type seat struct {
	name      string
	bot       bool
	board     *Board
	tracker   *Tracker
	queue     ShipQueue
	lastEvent string
}

// Match owns the full state of one game session. Every operation, including
// timer callbacks, runs under mu.
type Match struct {
	mu   sync.Mutex
	opts Options
	log  *log.Logger
	bot  *Bot

	seats       [2]*seat
	phase       Phase
	turn        int
	round       int
	score       Score
	roundWinner int
	status      string

	// gen changes whenever a round starts or ends; turnSeq whenever a turn
	// timer is armed. Timer callbacks compare both and bail out if stale.
	gen          uint64
	turnSeq      uint64
	turnTimer    Timer
	botTimer     Timer
	turnDeadline time.Time
	closed       bool

	listeners []func(Event)
	pending   []Event
}

func NewMatch(opts Options) (*Match, error) {
	if opts.Mode == "" {
		opts.Mode = VsBot
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if opts.BestOf == 0 {
		opts.BestOf = 1
	}
	score, err := NewScore(opts.BestOf)
	if err != nil {
		return nil, err
	}
	if opts.Player1Name == "" {
		opts.Player1Name = "Player 1"
	}
	if opts.Mode == VsBot {
		opts.Player2Name = BotName
	} else if opts.Player2Name == "" {
		opts.Player2Name = "Player 2"
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	m := &Match{
		opts:        opts,
		log:         opts.Logger.With("match", opts.ID),
		bot:         NewBot(opts.Rand),
		phase:       PhaseSetup,
		score:       score,
		roundWinner: -1,
		status:      "Game starting. Place your ships.",
	}
	m.seats[Player1] = &seat{name: opts.Player1Name, board: NewBoard(), tracker: NewTracker()}
	m.seats[Player2] = &seat{name: opts.Player2Name, bot: opts.Mode == VsBot, board: NewBoard(), tracker: NewTracker()}
	return m, nil
}

func (m *Match) ID() string { return m.opts.ID }

func (m *Match) Mode() Mode { return m.opts.Mode }

// OnEvent registers a listener called after each accepted change, outside
// the match lock.
func (m *Match) OnEvent(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Match) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Match) Turn() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turn
}

func (m *Match) Round() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.round
}

func (m *Match) Score() Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score
}

func (m *Match) Names() [2]string {
	return [2]string{m.opts.Player1Name, m.opts.Player2Name}
}

// Start leaves Setup and opens the first placement phase.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if err := m.checkOpen(); err != nil {
		return err
	}
	if m.phase != PhaseSetup {
		return fmt.Errorf("start in phase %s: %w", m.phase, ErrInvalidMove)
	}
	return m.startRound()
}

// Place puts the ship at the head of the player's queue on their board.
func (m *Match) Place(player int, start Coord, o Orientation) error {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if err := m.checkPlacing(player); err != nil {
		return err
	}
	s := m.seats[player]
	board := s.board.Clone()
	next, err := AttemptPlacement(board, s.queue, start, o)
	if err != nil {
		m.log.Debug("placement rejected", "player", player, "row", start.Row, "col", start.Col, "err", err)
		return err
	}
	return m.commitPlacement(player, board, next)
}

// AutoPlace places the rest of the player's queue at random.
func (m *Match) AutoPlace(player int) error {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if err := m.checkPlacing(player); err != nil {
		return err
	}
	s := m.seats[player]
	board := s.board.Clone()
	if err := m.bot.PlaceFleet(board, s.queue); err != nil {
		m.log.Error("random placement exhausted", "player", player, "err", err)
		return err
	}
	return m.commitPlacement(player, board, nil)
}

// Attack fires the active player's shot at the opponent's board.
func (m *Match) Attack(player int, target Coord) (AttackResult, error) {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if err := m.checkOpen(); err != nil {
		return AttackResult{}, err
	}
	if !validPlayer(player) {
		return AttackResult{}, fmt.Errorf("player %d: %w", player, ErrInvalidMove)
	}
	if m.phase != PhaseBattle {
		return AttackResult{}, fmt.Errorf("attack in phase %s: %w", m.phase, ErrInvalidMove)
	}
	if player != m.turn {
		return AttackResult{}, fmt.Errorf("not player %d's turn: %w", player, ErrInvalidMove)
	}
	if m.seats[player].bot {
		return AttackResult{}, fmt.Errorf("player %d is played by the engine: %w", player, ErrInvalidMove)
	}
	if !target.InBounds() {
		return AttackResult{}, fmt.Errorf("attack at %d,%d: %w", target.Row, target.Col, ErrOutOfBounds)
	}
	if m.seats[player].tracker.Attacked(target) {
		return AttackResult{}, fmt.Errorf("attack at %s: %w", target, ErrAlreadyShot)
	}
	return m.applyAttack(player, target)
}

// NextRound starts the following round after a RoundOver.
func (m *Match) NextRound() error {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if err := m.checkOpen(); err != nil {
		return err
	}
	if m.phase != PhaseRoundOver {
		return fmt.Errorf("next round in phase %s: %w", m.phase, ErrInvalidMove)
	}
	return m.startRound()
}

// Reset clears the tally and restarts from round one.
func (m *Match) Reset() error {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if m.closed {
		return fmt.Errorf("match closed: %w", ErrInvalidMove)
	}
	m.disarm()
	m.score.Reset()
	m.round = 0
	return m.startRound()
}

// Close disarms all timers; later operations are rejected.
func (m *Match) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disarm()
	m.gen++
	m.closed = true
}

func (m *Match) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Match) checkOpen() error {
	if m.closed {
		return fmt.Errorf("match closed: %w", ErrInvalidMove)
	}
	if m.phase == PhaseMatchOver {
		return ErrMatchDecided
	}
	return nil
}

func (m *Match) checkPlacing(player int) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	switch {
	case m.phase == PhasePlacingP1 && player == Player1:
	case m.phase == PhasePlacingP2 && player == Player2:
	default:
		return fmt.Errorf("player %d cannot place in phase %s: %w", player, m.phase, ErrInvalidMove)
	}
	return nil
}

// commitPlacement stores a placement made on a cloned board. When it finishes
// player one's fleet in a mode where the second fleet is placed by the engine,
// that fleet is placed first so a failure leaves nothing half-done.
func (m *Match) commitPlacement(player int, board *Board, next ShipQueue) error {
	var second *Board
	if next.Empty() && player == Player1 && m.autoSecondFleet() {
		second = m.seats[Player2].board.Clone()
		if err := m.bot.PlaceFleet(second, m.seats[Player2].queue); err != nil {
			m.log.Error("bot placement exhausted", "err", err)
			return err
		}
	}

	s := m.seats[player]
	s.board = board
	s.queue = next
	m.event(EventShipPlaced, player, nil)
	if !next.Empty() {
		m.status = fmt.Sprintf("%s: place your %s", s.name, m.nextShipName(player))
		return nil
	}
	if second != nil {
		m.seats[Player2].board = second
		m.seats[Player2].queue = nil
	}
	m.finishPlacement(player)
	return nil
}

func (m *Match) autoSecondFleet() bool {
	return m.opts.Mode == VsBot || m.opts.RandomPlacement
}

func (m *Match) finishPlacement(player int) {
	if player == Player1 && !m.seats[Player2].queue.Empty() {
		m.phase = PhasePlacingP2
		m.status = fmt.Sprintf("%s: place your ships", m.seats[Player2].name)
		return
	}
	m.enterBattle()
}

func (m *Match) nextShipName(player int) string {
	length, ok := m.seats[player].queue.Head()
	if !ok {
		return ""
	}
	t, _ := ShipTypeForLength(length)
	return fmt.Sprintf("%s (%d cells)", t, length)
}

func (m *Match) startRound() error {
	m.disarm()
	m.gen++
	m.round++
	for _, s := range m.seats {
		s.board.Reset()
		s.tracker.Reset()
		s.queue = NewShipQueue()
		s.lastEvent = ""
	}
	m.roundWinner = -1
	m.turn = Player1
	m.phase = PhasePlacingP1
	m.status = fmt.Sprintf("%s: place your %s", m.seats[Player1].name, m.nextShipName(Player1))
	m.event(EventRoundStarted, Player1, nil)
	m.log.Info("round started", "round", m.round)

	if !m.opts.RandomPlacement {
		return nil
	}
	board := m.seats[Player1].board.Clone()
	if err := m.bot.PlaceFleet(board, m.seats[Player1].queue); err != nil {
		m.log.Error("random placement exhausted", "player", Player1, "err", err)
		return err
	}
	return m.commitPlacement(Player1, board, nil)
}

func (m *Match) enterBattle() {
	m.phase = PhaseBattle
	m.turn = Player1
	m.status = fmt.Sprintf("Battle begins! %s's turn", m.seats[m.turn].name)
	m.event(EventBattle, m.turn, nil)
	m.armTurnTimer()
	if m.seats[m.turn].bot {
		m.scheduleBotMove()
	}
}

func (m *Match) applyAttack(attacker int, target Coord) (AttackResult, error) {
	defender := Opponent(attacker)
	res, err := ResolveAttack(m.seats[defender].board, m.seats[attacker].tracker, target)
	if err != nil {
		return AttackResult{}, err
	}
	m.setAttackMessages(attacker, defender, res)
	m.event(EventAttack, attacker, &res)
	m.log.Debug("attack", "player", attacker, "target", target.String(), "outcome", res.Outcome, "sunk", res.Sunk)

	if res.RoundOver {
		m.endRound(attacker)
		return res, nil
	}
	if !(m.opts.ExtraTurnOnHit && res.Outcome == HitShot) {
		m.turn = defender
	}
	m.status = fmt.Sprintf("%s's turn", m.seats[m.turn].name)
	m.armTurnTimer()
	if m.seats[m.turn].bot {
		m.scheduleBotMove()
	}
	return res, nil
}

func (m *Match) setAttackMessages(attacker, defender int, res AttackResult) {
	a, d := m.seats[attacker], m.seats[defender]
	switch {
	case res.Sunk:
		a.lastEvent = fmt.Sprintf("You sunk their %s!", res.ShipType)
		d.lastEvent = fmt.Sprintf("Your %s has been sunk!", res.ShipType)
	case res.Outcome == HitShot:
		a.lastEvent = "You hit an enemy ship!"
		d.lastEvent = "Your ship has been hit!"
	default:
		a.lastEvent = "You missed."
		d.lastEvent = "The opponent fired and missed."
	}
}

func (m *Match) endRound(winner int) {
	m.disarm()
	m.gen++
	if err := m.score.Record(winner); err != nil {
		m.log.Error("failed to record round", "winner", winner, "err", err)
	}
	m.roundWinner = winner
	m.phase = PhaseRoundOver
	m.status = fmt.Sprintf("Round over! %s wins round %d.", m.seats[winner].name, m.round)
	m.event(EventRoundOver, winner, nil)
	m.log.Info("round over", "round", m.round, "winner", winner, "wins", m.score.Wins)

	if w, decided := m.score.MatchWinner(); decided {
		m.phase = PhaseMatchOver
		m.status = fmt.Sprintf("Match over! %s wins the match %d-%d.", m.seats[w].name, m.score.Wins[w], m.score.Wins[Opponent(w)])
		m.event(EventMatchOver, w, nil)
		m.log.Info("match over", "winner", w)
	}
}

func (m *Match) armTurnTimer() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
	m.turnSeq++
	if m.opts.TurnTimeout <= 0 {
		return
	}
	gen, seq := m.gen, m.turnSeq
	m.turnDeadline = m.opts.Clock.Now().Add(m.opts.TurnTimeout)
	m.turnTimer = m.opts.Clock.AfterFunc(m.opts.TurnTimeout, func() {
		m.onTurnExpired(gen, seq)
	})
}

func (m *Match) scheduleBotMove() {
	if m.botTimer != nil {
		m.botTimer.Stop()
	}
	gen, seq := m.gen, m.turnSeq
	m.botTimer = m.opts.Clock.AfterFunc(m.opts.BotDelay, func() {
		m.onBotMove(gen, seq)
	})
}

func (m *Match) stale(gen, seq uint64) bool {
	return m.closed || gen != m.gen || seq != m.turnSeq || m.phase != PhaseBattle
}

func (m *Match) onTurnExpired(gen, seq uint64) {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if m.stale(gen, seq) {
		return
	}
	loser := m.turn
	m.turnTimer = nil
	m.seats[loser].lastEvent = "Time's up! You forfeit the round."
	m.seats[Opponent(loser)].lastEvent = "The opponent ran out of time."
	m.event(EventTimeout, loser, nil)
	m.log.Info("turn timed out", "player", loser)
	m.endRound(Opponent(loser))
}

func (m *Match) onBotMove(gen, seq uint64) {
	m.mu.Lock()
	defer m.unlockAndEmit()
	if m.stale(gen, seq) || !m.seats[m.turn].bot {
		return
	}
	m.botTimer = nil
	target, err := m.bot.ChooseTarget(m.seats[m.turn].tracker)
	if err != nil {
		m.log.Error("bot has no target", "err", err)
		return
	}
	if _, err := m.applyAttack(m.turn, target); err != nil {
		m.log.Error("bot attack rejected", "target", target.String(), "err", err)
	}
}

func (m *Match) disarm() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
	if m.botTimer != nil {
		m.botTimer.Stop()
		m.botTimer = nil
	}
	m.turnDeadline = time.Time{}
}

func (m *Match) event(t EventType, player int, res *AttackResult) {
	m.pending = append(m.pending, Event{
		MatchID: m.opts.ID,
		Type:    t,
		Player:  player,
		Round:   m.round,
		Attack:  res,
	})
}

func (m *Match) unlockAndEmit() {
	events := m.pending
	m.pending = nil
	listeners := append([]func(Event){}, m.listeners...)
	m.mu.Unlock()
	for _, e := range events {
		for _, fn := range listeners {
			fn(e)
		}
	}
}
