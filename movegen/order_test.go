package movegen

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/connect4/board"
)

func TestSorterPopsBestFirst(t *testing.T) {
	is := is.New(t)
	var s Sorter
	s.Add(1, 0, 2)
	s.Add(2, 1, 5)
	s.Add(4, 2, 2)
	s.Add(8, 3, 0)
	is.Equal(s.Len(), 4)

	var cols []int
	for {
		_, col, ok := s.Next()
		if !ok {
			break
		}
		cols = append(cols, col)
	}
	// equal scores: the later addition comes out first
	is.Equal(cols, []int{1, 2, 0, 3})
	is.Equal(s.Len(), 0)
}

func TestOrderEmptyBoardIsCenterOut(t *testing.T) {
	is := is.New(t)
	cols := OrderedColumns(board.NewPosition())
	is.Equal(cols, ColumnOrder[:])
}

func TestOrderedColumnsShortCircuitsWin(t *testing.T) {
	is := is.New(t)
	p := board.MustFromMoveSequence("112233")
	is.Equal(OrderedColumns(p), []int{3})
}

func TestOrderedColumnsForcedBlock(t *testing.T) {
	is := is.New(t)
	p := board.MustFromMoveSequence("12121")
	is.Equal(OrderedColumns(p), []int{0})
}

func TestOrderedColumnsAllLosing(t *testing.T) {
	is := is.New(t)
	// two open threats on the bottom row
	p := board.MustFromMoveSequence("22334")
	is.Equal(p.PossibleNonLosingMoves(), uint64(0))
	is.Equal(OrderedColumns(p), ColumnOrder[:])
}

func TestOrderPrefersThreats(t *testing.T) {
	is := is.New(t)
	// the first player owns the bottom of columns 4 and 5
	p := board.MustFromMoveSequence("4455")
	s := Order(p, p.Possible())
	_, col, ok := s.Next()
	is.True(ok)
	// 3 or 6 both make an open three; 3 is closer to the center
	is.Equal(col, 2)
}

func TestFinishedGameHasNoColumns(t *testing.T) {
	is := is.New(t)
	p := board.MustFromMoveSequence("1212121")
	is.Equal(len(OrderedColumns(p)), 0)
	is.Equal(len(LegalColumns(p)), 0)
}
