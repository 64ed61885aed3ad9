package book

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/negamax"
)

func TestDefaultBook(t *testing.T) {
	is := is.New(t)
	b, err := Default()
	is.NoErr(err)
	is.Equal(b.MaxDepth(), 1)
	is.Equal(b.Len(), 5)

	score, ok := b.Lookup(board.NewPosition())
	is.True(ok)
	is.Equal(score, 1)

	// column scores after the first move, for the second player
	expected := []int{2, 1, 0, -1, 0, 1, 2}
	for col, want := range expected {
		p := board.NewPosition()
		is.NoErr(p.Play(col))
		score, ok := b.Lookup(p)
		is.True(ok)
		is.Equal(score, want)
	}

	_, ok = b.Lookup(board.MustFromMoveSequence("44"))
	is.True(!ok)
}

func TestRoundTrip(t *testing.T) {
	is := is.New(t)
	recs := []Record{{Key: 99, Score: -3}, {Key: 7, Score: 4}, {Key: 1 << 40, Score: 0}}
	b, err := New(4, recs)
	is.NoErr(err)

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	is.NoErr(err)
	is.Equal(n, int64(headerSize+3*recordSize))

	b2, err := Read(&buf)
	is.NoErr(err)
	is.Equal(b2.MaxDepth(), 4)
	is.Equal(b2.Records(), []Record{{Key: 7, Score: 4}, {Key: 99, Score: -3}, {Key: 1 << 40, Score: 0}})
}

func TestEmbeddedBookBytesAreCanonical(t *testing.T) {
	is := is.New(t)
	b, err := Default()
	is.NoErr(err)
	var buf bytes.Buffer
	_, err = b.WriteTo(&buf)
	is.NoErr(err)
	is.Equal(buf.Bytes(), defaultBookData)
}

func TestNewRejectsDuplicates(t *testing.T) {
	is := is.New(t)
	_, err := New(2, []Record{{Key: 5, Score: 1}, {Key: 5, Score: 2}})
	is.True(errors.Is(err, ErrUnsorted))

	_, err = New(2, []Record{{Key: 5, Score: 40}})
	is.True(errors.Is(err, ErrScoreRange))
}

func serialized(t *testing.T) []byte {
	b, err := New(3, []Record{{Key: 1, Score: 1}, {Key: 2, Score: -1}})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseRejectsCorruption(t *testing.T) {
	is := is.New(t)

	data := serialized(t)
	data[0] = 'X'
	_, err := Parse(data)
	is.True(errors.Is(err, ErrBadMagic))

	data = serialized(t)
	data[4] = 2
	_, err = Parse(data)
	is.True(errors.Is(err, ErrVersion))

	data = serialized(t)
	data[5] = 8
	_, err = Parse(data)
	is.True(errors.Is(err, ErrDimensions))

	data = serialized(t)
	_, err = Parse(data[:len(data)-1])
	is.True(errors.Is(err, ErrTruncated))
	_, err = Parse(data[:10])
	is.True(errors.Is(err, ErrTruncated))

	data = serialized(t)
	data[len(data)-1] ^= 0x01
	_, err = Parse(data)
	is.True(errors.Is(err, ErrChecksum))

	// swap the two keys and fix the checksum so only the order is wrong
	data = serialized(t)
	binary.LittleEndian.PutUint64(data[headerSize:], 2)
	binary.LittleEndian.PutUint64(data[headerSize+recordSize:], 1)
	b := &Book{keys: []uint64{2, 1}, scores: []int8{1, -1}}
	binary.LittleEndian.PutUint64(data[12:], checksumOf(b))
	_, err = Parse(data)
	is.True(errors.Is(err, ErrUnsorted))
}

func checksumOf(b *Book) uint64 {
	var buf bytes.Buffer
	b.WriteTo(&buf)
	return binary.LittleEndian.Uint64(buf.Bytes()[12:])
}

func TestGetFromDataPath(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	is.NoErr(os.WriteFile(filepath.Join(dir, "tiny.book"), serialized(t), 0o644))

	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigDataPath, dir)
	b, err := Get(cfg, "tiny.book")
	is.NoErr(err)
	is.Equal(b.Len(), 2)
	again, err := Get(cfg, "tiny.book")
	is.NoErr(err)
	is.True(b == again)

	def, err := Get(cfg, "")
	is.NoErr(err)
	is.Equal(def.Len(), 5)

	_, err = Get(cfg, "missing.book")
	is.True(errors.Is(err, os.ErrNotExist))

	cfg.Set(config.ConfigBookDisabled, true)
	b, err = FromConfig(cfg)
	is.NoErr(err)
	is.True(b == nil)
}

// A book filled with solver scores must not change what the solver
// computes, only how far it searches.
func TestBookAgreesWithSolver(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	start := board.MustFromMoveSequence("444343533654")
	const depth = 14

	plain := negamax.NewSolver()
	plain.SetTranspositionTable(negamax.NewTranspositionTable(18))

	var recs []Record
	seen := map[uint64]bool{}
	var walk func(p board.Position)
	walk = func(p board.Position) {
		if p.IsOver() || seen[p.CanonicalKey()] {
			return
		}
		seen[p.CanonicalKey()] = true
		if p.NumMoves() > start.NumMoves() {
			recs = append(recs, Record{Key: p.CanonicalKey(), Score: int8(plain.Solve(ctx, p).Score)})
		}
		if p.NumMoves() == depth {
			return
		}
		for col := 0; col < board.Width; col++ {
			if p.CanPlay(col) {
				child := p
				is.NoErr(child.Play(col))
				walk(child)
			}
		}
	}
	walk(start)
	b, err := New(depth, recs)
	is.NoErr(err)

	withBook := negamax.NewSolver()
	withBook.SetTranspositionTable(negamax.NewTranspositionTable(18))
	withBook.SetBook(b)
	r := withBook.Solve(ctx, start)
	is.Equal(r.Source, negamax.SourceSearch)
	is.Equal(r.Score, 13)

	for col := 0; col < board.Width; col++ {
		child := start
		is.NoErr(child.Play(col))
		r := withBook.Solve(ctx, child)
		is.Equal(r.Score, plain.Solve(ctx, child).Score)
		if !child.CanWinNext() && child.PossibleNonLosingMoves() != 0 {
			is.Equal(r.Source, negamax.SourceBook)
		}
	}
}
