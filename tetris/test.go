package tetris

import (
	"math/rand/v2"
	"sync"
	"time"
)

// MockTicker is a mock implementation of the ticker interface.
type MockTicker struct {
	ch     chan time.Time
	stop   bool
	period time.Duration
	resets int
	mu     sync.Mutex
}

func NewMockTicker() *MockTicker          { return &MockTicker{ch: make(chan time.Time)} }
func (m *MockTicker) C() <-chan time.Time { return m.ch }
func (m *MockTicker) Tick()               { m.ch <- time.Now() }

func (m *MockTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stop = true
}

func (m *MockTicker) Reset(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stop = false
	m.period = d
	m.resets++
}

// IsStop reports whether the ticker was stopped after its last reset.
func (m *MockTicker) IsStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop
}

// Period returns the duration of the last reset.
func (m *MockTicker) Period() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.period
}

func (m *MockTicker) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// NewTestGame creates a game around a specific Tetris and returns it with a manual ticker.
func NewTestGame(t *Tetris) (*Game, *MockTicker) {
	ticker := NewMockTicker()
	g := NewGame(&Options{Ticker: ticker})
	g.tetris = t
	return g, ticker
}

// NewTestTetris creates a Tetris where the current and next tetrominoes have the given shape.
// Later draws come from a fixed seed.
func NewTestTetris(shape Shape) *Tetris {
	return &Tetris{
		Stack:     emptyStack(),
		Tetromino: shapeMap[shape](),
		Position:  SpawnPosition,
		Next:      shapeMap[shape](),
		Level:     1,
		rand:      rand.New(rand.NewPCG(1, 2)),
	}
}
