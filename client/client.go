package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"tetrisengine/tetris"
	"time"

	"github.com/eiannone/keyboard"
)

const dialTimeout = 5 * time.Second

type clientState int

const (
	lobby clientState = iota
	waiting
	playing
)

type state struct {
	current clientState
	mu      sync.Mutex
}

func (s *state) get() clientState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *state) set(c clientState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = c
}

// tetrisGame is a running game, either hosted in process or on a server.
type tetrisGame interface {
	Start()
	Subscribe() (<-chan *tetris.Snapshot, func())
	Action(tetris.Action) *tetris.Snapshot
	Stop()
}

type renderer interface {
	lobby(message)
	game(*tetris.Snapshot)
	reset()
}

type Client struct {
	newLocal  func() tetrisGame
	newRemote func() (tetrisGame, error)
	game      tetrisGame
	render    renderer
	logger    *slog.Logger
	kbCh      <-chan keyboard.KeyEvent
	state     *state
	wg        sync.WaitGroup
}

type Options struct {
	Address      string
	Name         string
	InitialSpeed time.Duration
	SpeedFactor  float64
}

func New(l *slog.Logger, o *Options) (*Client, error) {
	kb, err := keyboard.GetKeys(20)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyboard: %w", err)
	}
	return &Client{
		newLocal: func() tetrisGame {
			return tetris.NewGame(&tetris.Options{
				InitialSpeed: o.InitialSpeed,
				SpeedFactor:  o.SpeedFactor,
				Logger:       l,
			})
		},
		newRemote: func() (tetrisGame, error) {
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
			defer cancel()
			r, err := dialRemote(ctx, o.Address, l)
			if err != nil {
				return nil, err
			}
			return r, nil
		},
		render: newRender(l, o.Name),
		logger: l,
		kbCh:   kb,
		state:  &state{current: lobby},
	}, nil
}

// Start shows the lobby and blocks until the player quits.
func (c *Client) Start() {
	c.render.lobby(defaultLobby())
	c.listenKB()
	c.stopGame()
}

func (c *Client) listenKB() {
	for {
		event, ok := <-c.kbCh
		if !ok {
			c.logger.Error("Keyboard events channel closed unexpectedly")
			return
		}
		if event.Err != nil {
			c.logger.Error("keysEvents error", slog.String("error", event.Err.Error()))
			return
		}
		if event.Key == keyboard.KeyCtrlC {
			return
		}
		switch c.state.get() {
		case lobby:
			switch event.Rune {
			case 'p':
				c.play(c.newLocal())
			case 'o':
				c.state.set(waiting)
				c.render.lobby(connecting())
				g, err := c.newRemote()
				if err != nil {
					c.logger.Error("unable to start online game", slog.String("error", err.Error()))
					c.state.set(lobby)
					c.render.lobby(errorMessage())
					continue
				}
				c.play(g)
			case 'q':
				return
			}
		case playing:
			if event.Rune == 'q' || event.Rune == 'Q' {
				c.stopGame()
				c.render.lobby(defaultLobby())
				continue
			}
			if a, ok := keyAction(event); ok {
				c.game.Action(a)
			}
		}
	}
}

func (c *Client) play(g tetrisGame) {
	c.game = g
	updates, cancel := g.Subscribe()
	c.state.set(playing)
	c.render.reset()
	c.wg.Add(1)
	go c.listenTetris(updates, cancel)
	g.Start()
}

func (c *Client) listenTetris(updates <-chan *tetris.Snapshot, cancel func()) {
	defer c.wg.Done()
	defer cancel()
	for u := range updates {
		c.render.game(u)
	}
	c.logger.Debug("game updates channel closed")
}

// stopGame ends the current game and waits until its last frame is drawn.
func (c *Client) stopGame() {
	if c.game != nil {
		c.game.Stop()
		c.wg.Wait()
		c.game = nil
	}
	c.state.set(lobby)
}

func keyAction(event keyboard.KeyEvent) (tetris.Action, bool) {
	switch {
	case event.Key == keyboard.KeyArrowLeft:
		return tetris.MoveLeft, true
	case event.Key == keyboard.KeyArrowRight:
		return tetris.MoveRight, true
	case event.Key == keyboard.KeyArrowDown:
		return tetris.MoveDown, true
	case event.Key == keyboard.KeyArrowUp:
		return tetris.Rotate, true
	case event.Key == keyboard.KeySpace:
		return tetris.DropDown, true
	case event.Rune == 'p' || event.Rune == 'P':
		return tetris.Pause, true
	case event.Rune == 'r' || event.Rune == 'R':
		return tetris.Reset, true
	}
	return "", false
}
