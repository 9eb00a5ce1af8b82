package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	g := New(0)

	assert.Equal(t, DefaultSize, g.Size)
	assert.Equal(t, Black, g.Current)
	assert.Equal(t, Empty, g.Winner)
	assert.Len(t, g.Board, DefaultSize)
	for _, row := range g.Board {
		assert.Len(t, row, DefaultSize)
	}
	assert.Nil(t, g.LastMove())
}

func TestPlaceStone_AlternatesTurns(t *testing.T) {
	g := New(15)

	assert.NoError(t, g.PlaceStone(Black, 7, 7))
	assert.Equal(t, White, g.Current)

	assert.NoError(t, g.PlaceStone(White, 8, 7))
	assert.Equal(t, Black, g.Current)

	assert.Equal(t, Black, g.Board[7][7])
	assert.Equal(t, White, g.Board[7][8])
	assert.Equal(t, &Move{X: 8, Y: 7, Color: White}, g.LastMove())
}

func TestPlaceStone_WrongTurn(t *testing.T) {
	g := New(15)

	err := g.PlaceStone(White, 7, 7)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Equal(t, Empty, g.Board[7][7])
	assert.Empty(t, g.Moves)
}

func TestPlaceStone_OutOfBounds(t *testing.T) {
	g := New(15)

	for _, c := range [][2]int{{-1, 0}, {0, -1}, {15, 0}, {0, 15}} {
		err := g.PlaceStone(Black, c[0], c[1])
		assert.ErrorIs(t, err, ErrOutOfBounds)
	}
	assert.Equal(t, Black, g.Current, "rejected moves must not advance the turn")
}

func TestPlaceStone_OccupiedCellNeverOverwritten(t *testing.T) {
	g := New(15)

	assert.NoError(t, g.PlaceStone(Black, 3, 3))
	err := g.PlaceStone(White, 3, 3)
	assert.ErrorIs(t, err, ErrCellOccupied)

	assert.Equal(t, Black, g.Board[3][3])
	assert.Equal(t, White, g.Current)
	assert.Len(t, g.Moves, 1)
}

// Five black stones down the first column; the fourth must not win, the
// fifth must.
func TestWin_VerticalFiveInARow(t *testing.T) {
	g := New(15)

	for i := 0; i < 4; i++ {
		assert.NoError(t, g.PlaceStone(Black, 0, i))
		assert.Equal(t, Empty, g.Winner, "no winner after %d black stones", i+1)
		assert.NoError(t, g.PlaceStone(White, 10, i))
	}

	assert.NoError(t, g.PlaceStone(Black, 0, 4))
	assert.Equal(t, Black, g.Winner)
	assert.True(t, g.Concluded())

	// Winner frozen, further moves rejected.
	err := g.PlaceStone(White, 5, 5)
	assert.ErrorIs(t, err, ErrGameConcluded)
	assert.Equal(t, Black, g.Current, "turn color must not advance after the winning move")
}

// The winning stone fills a gap in the middle of the run rather than
// extending an end.
func TestWin_HorizontalGapFill(t *testing.T) {
	g := New(15)

	// black: (2,7) (3,7) (5,7) (6,7), then (4,7) completes the five.
	for i, x := range []int{2, 3, 5, 6} {
		assert.NoError(t, g.PlaceStone(Black, x, 7))
		assert.NoError(t, g.PlaceStone(White, i, 0))
	}
	assert.Equal(t, Empty, g.Winner)

	assert.NoError(t, g.PlaceStone(Black, 4, 7))
	assert.Equal(t, Black, g.Winner)
}

func TestWin_Diagonals(t *testing.T) {
	t.Run("down-right", func(t *testing.T) {
		g := New(15)
		for i := 0; i < 4; i++ {
			assert.NoError(t, g.PlaceStone(Black, i, i))
			assert.NoError(t, g.PlaceStone(White, 14-i, 0))
		}
		assert.NoError(t, g.PlaceStone(Black, 4, 4))
		assert.Equal(t, Black, g.Winner)
	})

	t.Run("up-right", func(t *testing.T) {
		g := New(15)
		for i := 0; i < 4; i++ {
			assert.NoError(t, g.PlaceStone(Black, i, 10-i))
			assert.NoError(t, g.PlaceStone(White, 14-i, 0))
		}
		assert.NoError(t, g.PlaceStone(Black, 4, 6))
		assert.Equal(t, Black, g.Winner)
	})
}

func TestWin_OverlineCounts(t *testing.T) {
	g := New(15)

	// black builds x=0..2 and x=4..5 on y=7; placing x=3 makes six in a row.
	// white replies go to scattered cells so white never lines up five.
	whiteReplies := [][2]int{{9, 0}, {11, 2}, {9, 4}, {11, 6}, {9, 8}}
	for i, x := range []int{0, 1, 2, 4, 5} {
		assert.NoError(t, g.PlaceStone(Black, x, 7))
		assert.NoError(t, g.PlaceStone(White, whiteReplies[i][0], whiteReplies[i][1]))
	}
	assert.Equal(t, Empty, g.Winner)

	assert.NoError(t, g.PlaceStone(Black, 3, 7))
	assert.Equal(t, Black, g.Winner)
}

func TestWin_WhiteCanWinToo(t *testing.T) {
	g := New(15)

	for i := 0; i < 4; i++ {
		assert.NoError(t, g.PlaceStone(Black, i, 0))
		assert.NoError(t, g.PlaceStone(White, i, 5))
	}
	// block black's fifth, then white completes.
	assert.NoError(t, g.PlaceStone(Black, 10, 10))
	assert.NoError(t, g.PlaceStone(White, 4, 5))
	assert.Equal(t, White, g.Winner)
}

func TestFourInARowDoesNotWin(t *testing.T) {
	g := New(15)

	for i := 0; i < 4; i++ {
		assert.NoError(t, g.PlaceStone(Black, i, 0))
		assert.NoError(t, g.PlaceStone(White, i, 5))
	}
	assert.Equal(t, Empty, g.Winner)
	assert.False(t, g.Concluded())
}

func TestBanRule_AppliesToBlackOnly(t *testing.T) {
	banned := func(g *Game, color Color, x, y int) bool {
		return x == 5 && y == 5
	}
	g := New(15, WithBanRule(banned))

	err := g.PlaceStone(Black, 5, 5)
	assert.ErrorIs(t, err, ErrForbiddenMove)
	assert.Equal(t, Empty, g.Board[5][5])
	assert.Equal(t, Black, g.Current)

	assert.NoError(t, g.PlaceStone(Black, 0, 0))
	// white is never subject to the ban predicate.
	assert.NoError(t, g.PlaceStone(White, 5, 5))
	assert.Equal(t, White, g.Board[5][5])
}

func TestNoBan_AllowsEverything(t *testing.T) {
	g := New(15)
	assert.False(t, NoBan(g, Black, 7, 7))
}

func TestReset(t *testing.T) {
	g := New(15)

	for i := 0; i < 4; i++ {
		assert.NoError(t, g.PlaceStone(Black, i, 0))
		assert.NoError(t, g.PlaceStone(White, i, 5))
	}
	assert.NoError(t, g.PlaceStone(Black, 4, 0))
	assert.True(t, g.Concluded())

	g.Reset()

	assert.Equal(t, Black, g.Current)
	assert.Equal(t, Empty, g.Winner)
	assert.Empty(t, g.Moves)
	for y := range g.Board {
		for x := range g.Board[y] {
			assert.Equal(t, Empty, g.Board[y][x])
		}
	}

	// playable again after reset.
	assert.NoError(t, g.PlaceStone(Black, 7, 7))
}

func TestBoardReplayMatchesMoveList(t *testing.T) {
	g := New(15)

	moves := []struct {
		color Color
		x, y  int
	}{
		{Black, 7, 7}, {White, 8, 8}, {Black, 6, 7}, {White, 9, 9}, {Black, 5, 7},
	}
	for _, m := range moves {
		assert.NoError(t, g.PlaceStone(m.color, m.x, m.y))
	}

	replay := New(15)
	for _, mv := range g.Moves {
		assert.NoError(t, replay.PlaceStone(mv.Color, mv.X, mv.Y))
	}
	assert.Equal(t, g.Board, replay.Board)
	assert.Equal(t, g.Current, replay.Current)
}
