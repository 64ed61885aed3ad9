package board

import (
	"errors"
	"math/bits"
	"strings"
	"testing"

	"github.com/matryer/is"
)

const fullBoardDraw = "444444333333555555122222266666611111777777"

func TestFromMoveSequence(t *testing.T) {
	is := is.New(t)
	p, err := FromMoveSequence("444343533654")
	is.NoErr(err)
	is.Equal(p.NumMoves(), 12)
	is.Equal(bits.OnesCount64(p.Mask()), p.NumMoves())
	is.Equal(p.Current()&^p.Mask(), uint64(0))
	is.Equal(p.ColumnHeight(3), 5)
	is.Equal(p.ColumnHeight(2), 4)
	is.Equal(p.ColumnHeight(4), 2)
	is.Equal(p.ColumnHeight(0), 0)
	is.True(!p.IsOver())
}

func TestFromBoardStringMatchesSequence(t *testing.T) {
	is := is.New(t)
	bs := `
		.......
		...o...
		..xx...
		..ox...
		..oox..
		..oxxo.
	`
	fromBoard, err := FromBoardString(bs)
	is.NoErr(err)
	fromSeq := MustFromMoveSequence("444343533654")
	is.True(fromBoard.Equals(fromSeq))
	is.Equal(fromBoard.Key(), fromSeq.Key())
}

func TestFromBoardStringRejects(t *testing.T) {
	is := is.New(t)
	_, err := FromBoardString("...")
	is.True(errors.Is(err, ErrParse))
	is.True(errors.Is(err, ErrBoardLength))

	floating := strings.Repeat(".", 28) + "x......" + strings.Repeat(".", 7)
	_, err = FromBoardString(floating)
	is.True(errors.Is(err, ErrFloatingDisc))

	_, err = FromBoardString(strings.Repeat(".", 35) + "xx.....")
	is.True(errors.Is(err, ErrDiscCount))
}

func TestParseRejection(t *testing.T) {
	is := is.New(t)

	_, err := FromMoveSequence("8")
	is.True(errors.Is(err, ErrParse))
	is.True(errors.Is(err, ErrColumnOutOfRange))
	var perr *ParseError
	is.True(errors.As(err, &perr))
	is.Equal(perr.Index, 0)

	_, err = FromMoveSequence("40")
	is.True(errors.Is(err, ErrColumnOutOfRange))

	_, err = FromMoveSequence("4a")
	is.True(errors.Is(err, ErrInvalidCharacter))

	_, err = FromMoveSequence("1111111")
	is.True(errors.Is(err, ErrParse))
	is.True(errors.Is(err, ErrColumnFull))
	is.True(errors.As(err, &perr))
	is.Equal(perr.Index, 6)

	// the seventh move wins for the first player, nothing may follow it
	p, err := FromMoveSequence("1212121")
	is.NoErr(err)
	is.True(p.IsWon())
	_, err = FromMoveSequence("12121212")
	is.True(errors.Is(err, ErrGameOver))
}

func TestPlayInvalidMove(t *testing.T) {
	is := is.New(t)
	p := MustFromMoveSequence("111111")
	before := p
	err := p.Play(0)
	is.True(errors.Is(err, ErrInvalidMove))
	is.True(errors.Is(err, ErrColumnFull))
	is.True(p.Equals(before))

	err = p.Play(Width)
	is.True(errors.Is(err, ErrInvalidMove))
	is.True(errors.Is(err, ErrColumnOutOfRange))

	is.NoErr(p.Play(1))
	is.Equal(p.NumMoves(), 7)
}

func TestPlayAfterWinIsRejected(t *testing.T) {
	is := is.New(t)
	p := MustFromMoveSequence("1212121")
	err := p.Play(3)
	is.True(errors.Is(err, ErrInvalidMove))
	is.True(errors.Is(err, ErrGameOver))
}

func TestWinningMoves(t *testing.T) {
	is := is.New(t)
	type tc struct {
		name string
		seq  string
		col  int
	}
	cases := []tc{
		{"horizontal", "112233", 3},
		{"vertical", "121212", 0},
		{"descending diagonal", "556463645446", 6},
		{"ascending diagonal", "6634456765", 4},
	}
	for _, c := range cases {
		p := MustFromMoveSequence(c.seq)
		is.True(p.IsWinningMove(c.col)) // c.name
		is.True(p.CanWinNext())
		is.NoErr(p.Play(c.col))
		is.True(p.IsWon())
		is.True(p.IsOver())
	}
	p := MustFromMoveSequence("112233")
	is.True(!p.IsWinningMove(2))
	is.True(!p.IsWinningMove(-1))
}

func TestPossibleNonLosingMoves(t *testing.T) {
	is := is.New(t)
	// the first player threatens the top of column 1
	p := MustFromMoveSequence("12121")
	is.Equal(p.PossibleNonLosingMoves(), BottomMask(0)<<3)

	// two threats cannot both be stopped
	p = MustFromMoveSequence("2233")
	is.True(p.PossibleNonLosingMoves() != 0)
	is.NoErr(p.Play(3))
	is.Equal(p.PossibleNonLosingMoves(), uint64(0))
}

func TestFullBoardDraw(t *testing.T) {
	is := is.New(t)
	p, err := FromMoveSequence(fullBoardDraw)
	is.NoErr(err)
	is.True(p.IsFull())
	is.True(!p.IsWon())
	is.True(p.IsOver())
	is.Equal(p.TerminalScore(), 0)
	is.Equal(p.Possible(), uint64(0))
}

func TestTerminalScoreAfterWin(t *testing.T) {
	is := is.New(t)
	p := MustFromMoveSequence("121212")
	win := p.WinScore()
	is.Equal(win, (BoardSize+1-6)/2)
	is.NoErr(p.Play(0))
	// the loser sees the winner's score negated
	is.Equal(p.TerminalScore(), -win)
}

func TestMirrorKeys(t *testing.T) {
	is := is.New(t)
	left := MustFromMoveSequence("1")
	right := MustFromMoveSequence("7")
	is.Equal(left.Key(), right.MirrorKey())
	is.Equal(left.CanonicalKey(), right.CanonicalKey())

	p := MustFromMoveSequence("4433221")
	m := MustFromMoveSequence("4455667")
	is.True(p.Mirror().Equals(m))
	is.Equal(p.CanonicalKey(), m.CanonicalKey())
	is.Equal(p.Mirror().Mirror(), p)

	// a full column sets the guard bit of the key; it must survive mirroring
	full := MustFromMoveSequence("111111")
	is.Equal(full.Mirror().Key(), full.MirrorKey())
	is.Equal(mirrorColumns(full.MirrorKey()), full.Key())
}

func TestKeysDistinguishPositions(t *testing.T) {
	is := is.New(t)
	seen := map[uint64]string{}
	var walk func(p Position, seq string, depth int)
	walk = func(p Position, seq string, depth int) {
		if prev, ok := seen[p.Key()]; ok {
			other := MustFromMoveSequence(prev)
			is.True(other.Equals(p)) // same key must mean same position
		}
		seen[p.Key()] = seq
		if depth == 0 || p.IsOver() {
			return
		}
		for col := 0; col < Width; col++ {
			if !p.CanPlay(col) {
				continue
			}
			child := p
			is.NoErr(child.Play(col))
			walk(child, seq+string(rune('1'+col)), depth-1)
		}
	}
	walk(NewPosition(), "", 4)
	is.True(len(seen) > 100)
}

func TestDisplayText(t *testing.T) {
	is := is.New(t)
	p := MustFromMoveSequence("44")
	txt := p.ToDisplayText()
	lines := strings.Split(strings.TrimRight(txt, "\n"), "\n")
	is.Equal(len(lines), Height+2)
	is.Equal(lines[Height-1], "| . . . X . . . |")
	is.Equal(lines[Height-2], "| . . . O . . . |")
	is.Equal(lines[Height+1], "  1 2 3 4 5 6 7")
}
