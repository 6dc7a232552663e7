package tetris

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultInitialSpeed = time.Second
	DefaultSpeedFactor  = 0.85
	DefaultMinSpeed     = 50 * time.Millisecond
)

type Ticker interface {
	C() <-chan time.Time
	Reset(time.Duration)
	Stop()
}

type wrappedTicker struct {
	ticker *time.Ticker
}

func newWrappedTicker(d time.Duration) *wrappedTicker {
	return &wrappedTicker{ticker: time.NewTicker(d)}
}

func (t *wrappedTicker) C() <-chan time.Time   { return t.ticker.C }
func (t *wrappedTicker) Stop()                 { t.ticker.Stop() }
func (t *wrappedTicker) Reset(d time.Duration) { t.ticker.Reset(d) }

type Options struct {
	// InitialSpeed is the time between drops at level 1.
	InitialSpeed time.Duration
	// SpeedFactor scales the time between drops on every level.
	SpeedFactor float64
	// MinSpeed is the shortest time between drops.
	MinSpeed time.Duration

	Ticker Ticker
	Rand   *rand.Rand
	Logger *slog.Logger
}

type request struct {
	action Action
	reply  chan *Snapshot
}

// status is what the drop timer depends on.
type status struct {
	level int
	state State
}

// Game owns a Tetris and runs it. Ticks and actions are applied one at a
// time by the listen loop, readers get copies.
type Game struct {
	actionCh  chan request
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	tetris *Tetris
	mu     sync.RWMutex

	ticker       Ticker
	timerMu      sync.Mutex
	initialSpeed time.Duration
	speedFactor  float64
	minSpeed     time.Duration
	logger       *slog.Logger

	subs   map[chan *Snapshot]struct{}
	closed bool
	subMu  sync.Mutex
}

func NewGame(o *Options) *Game {
	if o == nil {
		o = &Options{}
	}
	g := &Game{
		actionCh:     make(chan request),
		doneCh:       make(chan struct{}),
		tetris:       New(o.Rand),
		ticker:       o.Ticker,
		initialSpeed: o.InitialSpeed,
		speedFactor:  o.SpeedFactor,
		minSpeed:     o.MinSpeed,
		logger:       o.Logger,
		subs:         make(map[chan *Snapshot]struct{}),
	}
	if g.initialSpeed <= 0 {
		g.initialSpeed = DefaultInitialSpeed
	}
	if g.speedFactor <= 0 {
		g.speedFactor = DefaultSpeedFactor
	}
	if g.minSpeed <= 0 {
		g.minSpeed = DefaultMinSpeed
	}
	if g.ticker == nil {
		// the ticker gets its real period on Start().
		g.ticker = newWrappedTicker(1 * time.Hour)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}
	return g
}

// Start runs the game. The first snapshot is sent to the subscribers
// before returning. Calling Start more than once has no effect.
func (g *Game) Start() {
	g.startOnce.Do(func() {
		g.mu.RLock()
		st := g.status()
		s := g.tetris.Snapshot()
		g.mu.RUnlock()
		g.setTimer(st)
		g.publish(s)
		go g.listen()
	})
}

// Stop halts the drop timer and the game loop and closes every subscription.
func (g *Game) Stop() {
	g.stopOnce.Do(func() {
		g.timerMu.Lock()
		g.ticker.Stop()
		close(g.doneCh)
		g.timerMu.Unlock()
		g.subMu.Lock()
		defer g.subMu.Unlock()
		g.closed = true
		for ch := range g.subs {
			delete(g.subs, ch)
			close(ch)
		}
	})
}

// Done is closed once the game has been stopped.
func (g *Game) Done() <-chan struct{} {
	return g.doneCh
}

// Action applies a to the game and returns the resulting snapshot.
// It returns nil if the game has been stopped.
func (g *Game) Action(a Action) *Snapshot {
	r := request{action: a, reply: make(chan *Snapshot, 1)}
	select {
	case g.actionCh <- r:
	case <-g.doneCh:
		return nil
	}
	return <-r.reply
}

// Read returns a copy of the current Tetris status that's safe to read concurrently.
func (g *Game) Read() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tetris.Snapshot()
}

// Subscribe returns a channel that receives a snapshot after every change.
// Only the latest snapshot is kept for slow readers. The returned func
// cancels the subscription.
func (g *Game) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	g.subMu.Lock()
	defer g.subMu.Unlock()
	if g.closed {
		close(ch)
		return ch, func() {}
	}
	g.subs[ch] = struct{}{}
	return ch, func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		if _, ok := g.subs[ch]; ok {
			delete(g.subs, ch)
			close(ch)
		}
	}
}

func (g *Game) listen() {
	for {
		select {
		case <-g.ticker.C():
			g.apply(MoveDown)
		case r := <-g.actionCh:
			r.reply <- g.apply(r.action)
		case <-g.doneCh:
			return
		}
	}
}

func (g *Game) apply(a Action) *Snapshot {
	g.mu.Lock()
	before := g.status()
	g.tetris.Do(a)
	after := g.status()
	s := g.tetris.Snapshot()
	g.mu.Unlock()

	if before != after {
		g.setTimer(after)
		if after.level != before.level {
			g.logger.Debug("level changed", slog.Int("level", after.level), slog.Int("lines", s.Lines))
		}
		if after.state == Over {
			g.logger.Info("game over", slog.Int("score", s.Score), slog.Int("lines", s.Lines), slog.Int("level", s.Level))
		}
	}
	g.publish(s)
	return s
}

// status must be called holding g.mu.
func (g *Game) status() status {
	return status{level: g.tetris.Level, state: g.tetris.State()}
}

// setTimer keeps the drop timer in sync with the game: it only runs while
// the game is running and its period follows the level.
func (g *Game) setTimer(s status) {
	g.timerMu.Lock()
	defer g.timerMu.Unlock()
	select {
	case <-g.doneCh:
		return
	default:
	}
	if s.state != Running {
		g.ticker.Stop()
		return
	}
	g.ticker.Reset(g.setTime(s.level))
}

func (g *Game) publish(s *Snapshot) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	for ch := range g.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// drop the stale snapshot the reader didn't get to.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// setTime returns the time between drops for the level:
//
//	Time = InitialSpeed * SpeedFactor^(Level-1)
func (g *Game) setTime(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	d := time.Duration(float64(g.initialSpeed) * math.Pow(g.speedFactor, float64(level-1)))
	return max(d, g.minSpeed)
}
