package game

import "errors"

// DefaultSize is the standard omok board side length.
const DefaultSize = 15

type Color string

const (
	Black Color = "black"
	White Color = "white"
	Empty Color = ""
)

// Opponent returns the other playing color.
func (c Color) Opponent() Color {
	if c == Black {
		return White
	}
	return Black
}

var (
	ErrGameConcluded = errors.New("game already concluded")
	ErrNotYourTurn   = errors.New("not this color's turn")
	ErrOutOfBounds   = errors.New("coordinates out of bounds")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrForbiddenMove = errors.New("move forbidden by ban rule")
)

// Move is one accepted stone placement.
type Move struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color Color `json:"color"`
}

// BanRule reports whether placing color at (x, y) would violate a
// game-specific ban (e.g. renju's double-three for black). It is consulted
// after basic legality checks and before the stone is placed.
type BanRule func(g *Game, color Color, x, y int) bool

// NoBan allows every move. The reference ruleset ships without a 3-3 check;
// a full renju predicate can be supplied via WithBanRule without touching
// move application.
func NoBan(*Game, Color, int, int) bool { return false }

// Game is the state of a single omok board. Black moves first. The board is
// indexed Board[y][x] and is reconstructible by replaying Moves in order.
type Game struct {
	Size    int       `json:"size"`
	Board   [][]Color `json:"board"`
	Current Color     `json:"currentColor"`
	Winner  Color     `json:"winner,omitempty"`
	Moves   []Move    `json:"moves"`

	banRule BanRule
}

type Option func(*Game)

// WithBanRule replaces the ban predicate applied to black's moves.
func WithBanRule(rule BanRule) Option {
	return func(g *Game) {
		g.banRule = rule
	}
}

// New creates an empty in-progress board. A non-positive size falls back to
// DefaultSize.
func New(size int, opts ...Option) *Game {
	if size <= 0 {
		size = DefaultSize
	}
	g := &Game{
		Size:    size,
		Current: Black,
		banRule: NoBan,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.Board = newBoard(size)
	return g
}

func newBoard(size int) [][]Color {
	board := make([][]Color, size)
	for y := range board {
		board[y] = make([]Color, size)
	}
	return board
}

// Concluded reports whether a winner has been declared.
func (g *Game) Concluded() bool {
	return g.Winner != Empty
}

// PlaceStone applies a move for color at (x, y). On success the cell is set,
// the move recorded, and a win scan runs from the placed cell; the turn
// toggles unless the move won.
func (g *Game) PlaceStone(color Color, x, y int) error {
	if g.Concluded() {
		return ErrGameConcluded
	}
	if color != g.Current {
		return ErrNotYourTurn
	}
	if !g.inBounds(x, y) {
		return ErrOutOfBounds
	}
	if g.Board[y][x] != Empty {
		return ErrCellOccupied
	}
	if color == Black && g.banRule != nil && g.banRule(g, color, x, y) {
		return ErrForbiddenMove
	}

	g.Board[y][x] = color
	g.Moves = append(g.Moves, Move{X: x, Y: y, Color: color})

	if g.checkWin(x, y) {
		g.Winner = color
		return nil
	}
	g.Current = color.Opponent()
	return nil
}

// LastMove returns the most recent accepted move, or nil on a fresh board.
func (g *Game) LastMove() *Move {
	if len(g.Moves) == 0 {
		return nil
	}
	mv := g.Moves[len(g.Moves)-1]
	return &mv
}

// Reset discards the board, move history and winner, returning to an
// in-progress game with black to move.
func (g *Game) Reset() {
	g.Board = newBoard(g.Size)
	g.Current = Black
	g.Winner = Empty
	g.Moves = nil
}

// checkWin scans the four axes through (x, y), counting contiguous stones of
// the placed color in both directions inclusive of the placed cell. Five or
// more wins; overlines count.
func (g *Game) checkWin(x, y int) bool {
	color := g.Board[y][x]
	dirs := [][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		count := 1
		i, j := x+d[0], y+d[1]
		for g.inBounds(i, j) && g.Board[j][i] == color {
			count++
			i += d[0]
			j += d[1]
		}
		i, j = x-d[0], y-d[1]
		for g.inBounds(i, j) && g.Board[j][i] == color {
			count++
			i -= d[0]
			j -= d[1]
		}
		if count >= 5 {
			return true
		}
	}
	return false
}

func (g *Game) inBounds(x, y int) bool {
	return x >= 0 && x < g.Size && y >= 0 && y < g.Size
}
