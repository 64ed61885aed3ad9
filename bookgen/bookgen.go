// Package bookgen builds opening books by solving every reachable position
// up to a depth.
package bookgen

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/negamax"
)

var (
	ErrDepth      = errors.New("root is deeper than the requested book depth")
	ErrIncomplete = errors.New("solve stopped before an exact score was found")
)

type Options struct {
	// MaxDepth is the deepest ply count stored.
	MaxDepth int
	// Root is where enumeration starts; the zero value is the empty board.
	Root board.Position
	// Threads is the number of workers, each with its own solver. 0 means
	// one per CPU.
	Threads int
	// TableSizePower sizes the transposition table the workers share.
	TableSizePower int
}

// Levels lists the distinct non-terminal positions reachable from root,
// one slice per ply from root.NumMoves() to maxDepth. Mirror images are
// kept once.
func Levels(root board.Position, maxDepth int) [][]board.Position {
	if root.IsOver() || root.NumMoves() > maxDepth {
		return nil
	}
	levels := [][]board.Position{{root}}
	seen := map[uint64]bool{root.CanonicalKey(): true}
	for d := root.NumMoves(); d < maxDepth; d++ {
		var next []board.Position
		for _, p := range levels[len(levels)-1] {
			for col := 0; col < board.Width; col++ {
				if !p.CanPlay(col) {
					continue
				}
				child := p
				child.PlayMove((p.Mask() + board.BottomMask(col)) & board.ColumnMask(col))
				k := child.CanonicalKey()
				if child.IsOver() || seen[k] {
					continue
				}
				seen[k] = true
				next = append(next, child)
			}
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
	}
	return levels
}

// Generate solves every position of Levels, deepest level first, so each
// level is searched with the book of the levels below it. Any failure
// aborts the whole run; no partial book is returned.
func Generate(ctx context.Context, opts Options) (*book.Book, error) {
	logger := zerolog.Ctx(ctx)
	if opts.Root.NumMoves() > opts.MaxDepth {
		return nil, fmt.Errorf("root at %d plies, depth %d: %w", opts.Root.NumMoves(), opts.MaxDepth, ErrDepth)
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	sizePower := opts.TableSizePower
	if sizePower == 0 {
		sizePower = negamax.DefaultTableSizePower
	}
	tt := negamax.NewTranspositionTable(sizePower)

	levels := Levels(opts.Root, opts.MaxDepth)
	var records []book.Record
	tstart := time.Now()

	for li := len(levels) - 1; li >= 0; li-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		level := levels[li]
		interim, err := book.New(opts.MaxDepth, records)
		if err != nil {
			return nil, err
		}
		scores, err := solveLevel(ctx, level, interim, tt, threads)
		if err != nil {
			return nil, err
		}
		for i, p := range level {
			records = append(records, book.Record{Key: p.CanonicalKey(), Score: int8(scores[i])})
		}
		logger.Info().Int("depth", level[0].NumMoves()).Int("positions", len(level)).
			Int("records", len(records)).Dur("elapsed", time.Since(tstart)).
			Msg("book-level-solved")
	}
	return book.New(opts.MaxDepth, records)
}

func solveLevel(ctx context.Context, level []board.Position, bk *book.Book,
	tt *negamax.TranspositionTable, threads int) ([]int, error) {

	scores := make([]int, len(level))
	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < threads; t++ {
		g.Go(func() error {
			s := negamax.NewSolver()
			s.SetTranspositionTable(tt)
			s.SetBook(bk)
			for {
				i := int(next.Add(1) - 1)
				if i >= len(level) {
					return nil
				}
				r := s.Solve(gctx, level[i])
				if !r.Exact {
					if err := gctx.Err(); err != nil {
						return err
					}
					return fmt.Errorf("position %d of level: %w", i, ErrIncomplete)
				}
				scores[i] = r.Score
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
