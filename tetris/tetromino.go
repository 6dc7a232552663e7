package tetris

import "math/rand/v2"

type Shape string

const (
	I Shape = "I"
	J Shape = "J"
	L Shape = "L"
	O Shape = "O"
	S Shape = "S"
	T Shape = "T"
	Z Shape = "Z"
)

// Shapes lists every tetromino type in draw order.
var Shapes = []Shape{I, J, L, O, S, T, Z}

type Tetromino struct {
	Grid  [][]bool `json:"grid"`
	Shape Shape    `json:"shape"`
	Color string   `json:"color"`
}

// shapeMap returns fresh copies of the base tetrominoes.
// Grids are drawn top to bottom, the first row is Y offset 0.
var shapeMap = map[Shape]func() *Tetromino{
	I: newI,
	J: newJ,
	L: newL,
	O: newO,
	S: newS,
	T: newT,
	Z: newZ,
}

// NewTetromino returns a copy of the base tetromino for the shape
// or nil if the shape is unknown.
func NewTetromino(s Shape) *Tetromino {
	f, ok := shapeMap[s]
	if !ok {
		return nil
	}
	return f()
}

/*
.	Shape

.	0 1 2 3
0	O O O O
*/
func newI() *Tetromino {
	return &Tetromino{
		Grid:  [][]bool{{true, true, true, true}},
		Shape: I,
		Color: "#00f0f0",
	}
}

/*
.	Shape

.	0 1 2
0	O X X
1	O O O
*/
func newJ() *Tetromino {
	return &Tetromino{
		Grid: [][]bool{
			{true, false, false},
			{true, true, true},
		},
		Shape: J,
		Color: "#0000f0",
	}
}

/*
.	Shape

.	0 1 2
0	X X O
1	O O O
*/
func newL() *Tetromino {
	return &Tetromino{
		Grid: [][]bool{
			{false, false, true},
			{true, true, true},
		},
		Shape: L,
		Color: "#f0a000",
	}
}

/*
.	Shape

.	0 1
0	O O
1	O O
*/
func newO() *Tetromino {
	return &Tetromino{
		Grid: [][]bool{
			{true, true},
			{true, true},
		},
		Shape: O,
		Color: "#f0f000",
	}
}

/*
.	Shape

.	0 1 2
0	X O O
1	O O X
*/
func newS() *Tetromino {
	return &Tetromino{
		Grid: [][]bool{
			{false, true, true},
			{true, true, false},
		},
		Shape: S,
		Color: "#00f000",
	}
}

/*
.	Shape

.	0 1 2
0	X O X
1	O O O
*/
func newT() *Tetromino {
	return &Tetromino{
		Grid: [][]bool{
			{false, true, false},
			{true, true, true},
		},
		Shape: T,
		Color: "#a000f0",
	}
}

/*
.	Shape

.	0 1 2
0	O O X
1	X O O
*/
func newZ() *Tetromino {
	return &Tetromino{
		Grid: [][]bool{
			{true, true, false},
			{false, true, true},
		},
		Shape: Z,
		Color: "#f00000",
	}
}

// randomTetromino draws one of the seven tetrominoes with equal odds.
// Draws are independent, repeats are allowed.
func randomTetromino(r *rand.Rand) *Tetromino {
	return shapeMap[Shapes[r.IntN(len(Shapes))]]()
}

// rotated returns a copy of the tetromino turned 90 degrees clockwise.
//
//	0 1 2		0 1
//	O X X	>	O O	0
//	O O O		O X	1
//				O X	2
func (t *Tetromino) rotated() *Tetromino {
	h := len(t.Grid)
	w := len(t.Grid[0])
	grid := make([][]bool, w)
	for i := range grid {
		grid[i] = make([]bool, h)
		for j := range grid[i] {
			grid[i][j] = t.Grid[h-1-j][i]
		}
	}
	return &Tetromino{Grid: grid, Shape: t.Shape, Color: t.Color}
}

func (t *Tetromino) copy() *Tetromino {
	if t == nil {
		return nil
	}
	grid := make([][]bool, len(t.Grid))
	for i := range t.Grid {
		grid[i] = make([]bool, len(t.Grid[i]))
		copy(grid[i], t.Grid[i])
	}
	return &Tetromino{Grid: grid, Shape: t.Shape, Color: t.Color}
}
