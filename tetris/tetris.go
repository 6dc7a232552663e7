// Package tetris contains the logic of the game.
//
// The playfield is a 10 x 20 stack of cells. Columns are 0 > 9 left to right
// and represent the X axis. Rows are 0 > 19 top to bottom and represent the
// Y axis. An empty string is an empty cell, otherwise it holds the color the
// cell will be rendered with.
package tetris

import (
	"math/rand/v2"
	"slices"
)

const (
	Width  = 10
	Height = 20

	pointsPerLine = 100
	linesPerLevel = 10
)

type Action string

const (
	MoveLeft  Action = "left"   // Moves the Tetromino one step to the left.
	MoveRight Action = "right"  // Moves the Tetromino one step to the right.
	MoveDown  Action = "down"   // Moves the Tetromino one step down, locking it if it landed.
	DropDown  Action = "drop"   // Drops the Tetromino down the stack and locks it.
	Rotate    Action = "rotate" // Rotates the Tetromino clockwise.
	Pause     Action = "pause"  // Pauses or resumes the game.
	Reset     Action = "reset"  // Starts a new game.
)

var actions = []Action{MoveLeft, MoveRight, MoveDown, DropDown, Rotate, Pause, Reset}

// ParseAction validates an action received as a string.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	return a, slices.Contains(actions, a)
}

type State int

const (
	Running State = iota
	Paused
	Over
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Over:
		return "game over"
	default:
		return "unknown"
	}
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SpawnPosition is where every new tetromino starts.
var SpawnPosition = Position{X: Width/2 - 1, Y: 0}

type Tetris struct {
	// Stack holds the locked cells. Height rows of Width cells.
	Stack [][]string

	Tetromino *Tetromino
	Position  Position
	Next      *Tetromino

	Score    int
	Level    int
	Lines    int
	GameOver bool
	Paused   bool

	rand *rand.Rand
}

// New returns a ready to play Tetris drawing pieces from r.
// A nil r uses a randomly seeded source.
func New(r *rand.Rand) *Tetris {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	t := &Tetris{rand: r}
	t.Reset()
	return t
}

func emptyStack() [][]string {
	s := make([][]string, Height)
	for i := range s {
		s[i] = make([]string, Width)
	}
	return s
}

// Reset discards the current game and starts a new one.
func (t *Tetris) Reset() {
	t.Stack = emptyStack()
	t.Tetromino = randomTetromino(t.rand)
	t.Position = SpawnPosition
	t.Next = randomTetromino(t.rand)
	t.Score = 0
	t.Level = 1
	t.Lines = 0
	t.GameOver = false
	t.Paused = false
}

func (t *Tetris) State() State {
	switch {
	case t.GameOver:
		return Over
	case t.Paused:
		return Paused
	default:
		return Running
	}
}

// IsValidMove reports whether the tetromino fits in the stack at p.
// Cells above the top of the stack are allowed so pieces can spawn partially hidden.
func (t *Tetris) IsValidMove(p Position, tm *Tetromino) bool {
	//		0 1 2 3 4 5 6 7 8 9			0 1 2
	//	0	X X X X O X X X X X		0	O X X
	//	1	X X X X O O O X X X		1	O O O
	//	2	X X X X X X X X X X
	for dy, r := range tm.Grid {
		for dx, c := range r {
			if !c {
				continue
			}
			x := p.X + dx
			y := p.Y + dy
			if x < 0 || x >= Width || y >= Height {
				return false
			}
			if y >= 0 && t.Stack[y][x] != "" {
				return false
			}
		}
	}
	return true
}

func (t *Tetris) frozen() bool {
	return t.GameOver || t.Paused
}

func (t *Tetris) MoveLeft()  { t.move(-1) }
func (t *Tetris) MoveRight() { t.move(1) }

func (t *Tetris) move(dx int) {
	if t.frozen() {
		return
	}
	p := Position{X: t.Position.X + dx, Y: t.Position.Y}
	if t.IsValidMove(p, t.Tetromino) {
		t.Position = p
	}
}

// Rotate turns the tetromino clockwise in place. There are no wall kicks,
// a rotation that doesn't fit is dropped.
func (t *Tetris) Rotate() {
	if t.frozen() {
		return
	}
	r := t.Tetromino.rotated()
	if t.IsValidMove(t.Position, r) {
		t.Tetromino = r
	}
}

// SoftDrop moves the tetromino one row down. If it can't move it gets locked
// into the stack and the next tetromino is spawned.
func (t *Tetris) SoftDrop() {
	if t.frozen() {
		return
	}
	p := Position{X: t.Position.X, Y: t.Position.Y + 1}
	if t.IsValidMove(p, t.Tetromino) {
		t.Position = p
		return
	}
	t.toStack()
	t.score(t.clearLines())
	t.spawn()
}

// HardDrop drops the tetromino as far as it goes and locks it.
func (t *Tetris) HardDrop() {
	if t.frozen() {
		return
	}
	t.Position.Y += t.dropDownDelta()
	t.SoftDrop()
}

func (t *Tetris) TogglePause() {
	if t.GameOver {
		return
	}
	t.Paused = !t.Paused
}

// dropDownDelta returns how many rows the tetromino can fall from its position.
func (t *Tetris) dropDownDelta() int {
	var d int
	for t.IsValidMove(Position{X: t.Position.X, Y: t.Position.Y + d + 1}, t.Tetromino) {
		d++
	}
	return d
}

// toStack locks the tetromino cells into the stack.
// Cells still above the top of the stack are lost.
func (t *Tetris) toStack() {
	for dy, r := range t.Tetromino.Grid {
		for dx, c := range r {
			y := t.Position.Y + dy
			if c && y >= 0 {
				t.Stack[y][t.Position.X+dx] = t.Tetromino.Color
			}
		}
	}
}

// clearLines removes every complete row and returns how many were removed.
// Empty rows are added on top so the stack keeps its height.
func (t *Tetris) clearLines() int {
	kept := make([][]string, 0, Height)
	for _, r := range t.Stack {
		if !slices.Contains(r, "") {
			continue
		}
		kept = append(kept, r)
	}
	cleared := Height - len(kept)
	if cleared == 0 {
		return 0
	}
	stack := make([][]string, 0, Height)
	for range cleared {
		stack = append(stack, make([]string, Width))
	}
	t.Stack = append(stack, kept...)
	return cleared
}

// score rewards the cleared lines at the level the lines were cleared in,
// the new level only applies from the next lock on.
func (t *Tetris) score(lines int) {
	t.Score += lines * pointsPerLine * t.Level
	t.Lines += lines
	t.Level = t.Lines/linesPerLevel + 1
}

// spawn moves the next tetromino into play and drafts a new one.
// The game is over when the new tetromino doesn't fit at the spawn position.
func (t *Tetris) spawn() {
	t.Tetromino = t.Next
	t.Position = SpawnPosition
	t.Next = randomTetromino(t.rand)
	if !t.IsValidMove(t.Position, t.Tetromino) {
		t.GameOver = true
	}
}

// Do applies an action. Unknown actions are ignored.
func (t *Tetris) Do(a Action) {
	switch a {
	case MoveLeft:
		t.MoveLeft()
	case MoveRight:
		t.MoveRight()
	case MoveDown:
		t.SoftDrop()
	case DropDown:
		t.HardDrop()
	case Rotate:
		t.Rotate()
	case Pause:
		t.TogglePause()
	case Reset:
		t.Reset()
	}
}
