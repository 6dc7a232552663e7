package tetris

// Snapshot is a read only copy of a Tetris.
type Snapshot struct {
	// Board is the stack with the current tetromino drawn on it.
	Board    [][]string `json:"board"`
	Stack    [][]string `json:"stack"`
	Current  *Tetromino `json:"current,omitempty"`
	Position Position   `json:"position"`
	Next     *Tetromino `json:"next,omitempty"`
	Score    int        `json:"score"`
	Level    int        `json:"level"`
	Lines    int        `json:"lines"`
	GameOver bool       `json:"gameOver"`
	Paused   bool       `json:"paused"`
}

func (s *Snapshot) State() State {
	switch {
	case s.GameOver:
		return Over
	case s.Paused:
		return Paused
	default:
		return Running
	}
}

// Snapshot copies the current status of the game.
func (t *Tetris) Snapshot() *Snapshot {
	return &Snapshot{
		Board:    t.Board(),
		Stack:    copyStack(t.Stack),
		Current:  t.Tetromino.copy(),
		Position: t.Position,
		Next:     t.Next.copy(),
		Score:    t.Score,
		Level:    t.Level,
		Lines:    t.Lines,
		GameOver: t.GameOver,
		Paused:   t.Paused,
	}
}

// Board returns a copy of the stack with the current tetromino on it.
// Cells of the tetromino outside the stack are not drawn.
func (t *Tetris) Board() [][]string {
	b := copyStack(t.Stack)
	if t.Tetromino == nil {
		return b
	}
	for dy, r := range t.Tetromino.Grid {
		for dx, c := range r {
			x := t.Position.X + dx
			y := t.Position.Y + dy
			if c && y >= 0 && y < len(b) && x >= 0 && x < len(b[y]) {
				b[y][x] = t.Tetromino.Color
			}
		}
	}
	return b
}

func copyStack(s [][]string) [][]string {
	if s == nil {
		return nil
	}
	c := make([][]string, len(s))
	for i := range s {
		c[i] = make([]string, len(s[i]))
		copy(c[i], s[i])
	}
	return c
}
