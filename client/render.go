package client

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"tetrisengine/tetris"
	"text/template"
	"unicode/utf8"
)

const (
	// ASCII colors.
	White = "37"

	resetPos    = "\033[H"        // Reset cursor position to 0,0
	clearScreen = "\033[2J\033[H" // Clear the screen and reset the cursor
	emptyCell   = "  "
	sideWidth   = 22
	lobbyWidth  = 38
)

//go:embed "layout.tmpl"
var layout string

var controls = []string{
	"←/→    move",
	"↓      soft drop",
	"↑      rotate",
	"space  hard drop",
	"p      pause",
	"r      reset",
	"q      lobby",
}

type message []string

func defaultLobby() message {
	return message{"Welcome to Terminal Tetris", "", "(p)lay   (o)nline   (q)uit"}
}

func connecting() message {
	return message{"Welcome to Terminal Tetris", "", "connecting to server..."}
}

func errorMessage() message {
	return message{"something went wrong :(", "", "(p)lay   (o)nline   (q)uit"}
}

type templateData struct {
	Snapshot *tetris.Snapshot
	Name     string
}

type render struct {
	writer   io.Writer
	logger   *slog.Logger
	template *template.Template
	*templateData
}

func newRender(l *slog.Logger, name string) *render {
	return &render{
		writer:       os.Stdout,
		logger:       l,
		template:     loadTemplate(),
		templateData: &templateData{Name: name},
	}
}

func (r *render) reset() {
	fmt.Fprint(r.writer, clearScreen)
}

func (r *render) lobby(m message) {
	fmt.Fprint(r.writer, clearScreen)
	border := "+" + strings.Repeat("-", lobbyWidth) + "+"
	fmt.Fprintf(r.writer, "\033[10;9H%s", border)
	for i, l := range m {
		fmt.Fprintf(r.writer, "\033[%d;9H|%s|", 11+i, center(l, lobbyWidth))
	}
	fmt.Fprintf(r.writer, "\033[%d;9H%s", 11+len(m), border)
}

func (r *render) game(s *tetris.Snapshot) {
	r.templateData.Snapshot = s
	fmt.Fprint(r.writer, resetPos)
	if err := r.template.Execute(r.writer, r.templateData); err != nil {
		r.logger.Error("unable to execute template in game()", slog.String("error", err.Error()))
	}
}

func loadTemplate() *template.Template {
	funcMap := template.FuncMap{
		"board": board,
		"side":  side,
	}

	// we use the console raw so new lines don't automatically transform into carriage return
	// to fix that we add a carriage return to every new line in the layout.
	l := strings.ReplaceAll(layout, "\n", "\r\n")
	l = strings.ReplaceAll(l, "Terminal Tetris", "\033[1mTerminal Tetris\033[0m")
	return template.Must(template.New("layout").Funcs(funcMap).Parse(l))
}

func cell(color string) string {
	if color == "" {
		return emptyCell
	}
	return fmt.Sprintf("\x1b[7m\x1b[%sm[]\x1b[0m", ansiColor(color))
}

// ansiColor turns a #rrggbb color into a true color foreground code.
func ansiColor(hex string) string {
	if len(hex) != 7 || hex[0] != '#' {
		return White
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return White
	}
	return fmt.Sprintf("38;2;%d;%d;%d", v>>16&0xff, v>>8&0xff, v&0xff)
}

func board(t *templateData) [][]string {
	rendered := make([][]string, tetris.Height)
	for y := range rendered {
		rendered[y] = make([]string, tetris.Width)
		for x := range rendered[y] {
			c := ""
			if t != nil && t.Snapshot != nil && y < len(t.Snapshot.Board) && x < len(t.Snapshot.Board[y]) {
				c = t.Snapshot.Board[y][x]
			}
			rendered[y][x] = cell(c)
		}
	}
	return rendered
}

func nextPiece(t *templateData) []string {
	rendered := []string{strings.Repeat(emptyCell, 4), strings.Repeat(emptyCell, 4)}
	if t == nil || t.Snapshot == nil || t.Snapshot.Next == nil {
		return rendered
	}
	next := t.Snapshot.Next
	for i := range min(len(next.Grid), 2) {
		row := []string{emptyCell, emptyCell, emptyCell, emptyCell}
		for iv, v := range next.Grid[i] {
			if v && iv < len(row) {
				row[iv] = cell(next.Color)
			}
		}
		rendered[i] = strings.Join(row, "")
	}
	return rendered
}

// side returns the panel shown next to each row of the board. Every line
// is padded so it overwrites the previous frame.
func side(t *templateData) []string {
	lines := make([]string, tetris.Height)
	lines[0] = "Next"
	np := nextPiece(t)
	lines[1], lines[2] = np[0], np[1]
	if t != nil && t.Snapshot != nil {
		s := t.Snapshot
		lines[4] = fmt.Sprintf("Score: %d", s.Score)
		lines[5] = fmt.Sprintf("Level: %d", s.Level)
		lines[6] = fmt.Sprintf("Lines: %d", s.Lines)
		switch s.State() {
		case tetris.Paused:
			lines[8] = "\033[1mPaused\033[0m"
		case tetris.Over:
			lines[8] = "\033[1mGame Over :)\033[0m"
		}
	}
	copy(lines[10:], controls)
	for i, l := range lines {
		if i == 1 || i == 2 {
			continue
		}
		if n := utf8.RuneCountInString(l); n < sideWidth {
			lines[i] = l + strings.Repeat(" ", sideWidth-n)
		}
	}
	return lines
}

func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
