// Package negamax strongly solves Connect Four positions with an alpha-beta
// negamax search, a transposition table and an optional opening book.
package negamax

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/movegen"
)

// Contexts are polled this often, in nodes.
const ctxCheckInterval = 4096

var (
	ErrNoMoves = errors.New("no legal moves")
)

// OpeningBook supplies exact scores for shallow positions.
type OpeningBook interface {
	Lookup(pos board.Position) (score int, ok bool)
}

// Source says where a result came from.
type Source int

const (
	SourceSearch Source = iota
	SourceTerminal
	SourceBook
)

func (s Source) String() string {
	switch s {
	case SourceTerminal:
		return "terminal"
	case SourceBook:
		return "book"
	}
	return "search"
}

// Result is the outcome of Solve. When Exact is false a budget stopped
// the search early: the true score lies in [Lower, Upper] and Score is
// Lower.
type Result struct {
	Score  int
	Exact  bool
	Lower  int
	Upper  int
	Nodes  uint64
	Source Source
}

func exactResult(score int, src Source, nodes uint64) Result {
	return Result{Score: score, Exact: true, Lower: score, Upper: score, Nodes: nodes, Source: src}
}

// MoveScore is the score of playing Column, from the point of view of the
// player making the move.
type MoveScore struct {
	Column int
	Legal  bool
	Score  int
	Exact  bool
	Lower  int
	Upper  int
}

// Solver holds what searches share: the transposition table, the opening
// book and the search limits. Per-search state lives elsewhere, so Solve
// may be called from several goroutines at once.
type Solver struct {
	ttable                  *TranspositionTable
	ttOnce                  sync.Once
	book                    OpeningBook
	transpositionTableOptim bool

	threads    int
	nodeBudget uint64
	timeBudget time.Duration
	nodes      atomic.Uint64

	logStream io.Writer
}

// NewSolver returns an initialized solver with no book.
func NewSolver() *Solver {
	s := new(Solver)
	s.Init()
	return s
}

// Init sets the default options. A table of the default size is allocated
// on the first search unless one was set.
func (s *Solver) Init() {
	s.transpositionTableOptim = true
	s.threads = 1
}

func (s *Solver) SetTranspositionTableOptim(o bool) {
	s.transpositionTableOptim = o
}

// SetTranspositionTable makes the solver use a shared table.
func (s *Solver) SetTranspositionTable(tt *TranspositionTable) {
	s.ttable = tt
}

func (s *Solver) TranspositionTable() *TranspositionTable {
	s.ensureTable()
	return s.ttable
}

// SetBook sets the opening book; nil disables book lookups.
func (s *Solver) SetBook(b OpeningBook) {
	s.book = b
}

func (s *Solver) Book() OpeningBook {
	return s.book
}

// SetThreads sets how many moves MoveScores solves at once.
func (s *Solver) SetThreads(threads int) {
	s.threads = max(1, threads)
}

// SetNodeBudget caps the nodes one Solve may visit. 0 means no cap.
func (s *Solver) SetNodeBudget(n uint64) {
	s.nodeBudget = n
}

// SetTimeBudget caps the wall time of one Solve. 0 means no cap.
func (s *Solver) SetTimeBudget(d time.Duration) {
	s.timeBudget = d
}

// SetLogStream makes Solve write each null-window search to w, as YAML.
func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}

// Nodes returns the number of nodes visited by all searches so far.
func (s *Solver) Nodes() uint64 {
	return s.nodes.Load()
}

func (s *Solver) ResetNodes() {
	s.nodes.Store(0)
}

func (s *Solver) ensureTable() {
	s.ttOnce.Do(func() {
		if s.ttable == nil {
			s.ttable = NewTranspositionTable(DefaultTableSizePower)
		}
	})
}

// Solve computes the score of pos for the player to move. It never fails
// on a legal position; budgets turn the answer into a pair of bounds.
func (s *Solver) Solve(ctx context.Context, pos board.Position) Result {
	if s.timeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeBudget)
		defer cancel()
	}
	ts := time.Now()
	res := s.solve(ctx, pos)
	s.nodes.Add(res.Nodes)

	log.Debug().
		Int("score", res.Score).
		Bool("exact", res.Exact).
		Int("lower", res.Lower).
		Int("upper", res.Upper).
		Uint64("nodes", res.Nodes).
		Stringer("source", res.Source).
		Dur("elapsed", time.Since(ts)).
		Msg("solve-returning")
	return res
}

func (s *Solver) solve(ctx context.Context, pos board.Position) Result {
	if pos.IsOver() {
		return exactResult(pos.TerminalScore(), SourceTerminal, 0)
	}
	if pos.CanWinNext() {
		return exactResult(pos.WinScore(), SourceTerminal, 1)
	}
	if pos.PossibleNonLosingMoves() == 0 {
		return exactResult(pos.LossScore(), SourceTerminal, 1)
	}
	if s.book != nil {
		if v, ok := s.book.Lookup(pos); ok {
			return exactResult(v, SourceBook, 1)
		}
	}

	sr := &search{ctx: ctx, budget: s.nodeBudget, book: s.book}
	if s.transpositionTableOptim {
		s.ensureTable()
		sr.tt = s.ttable
	}

	lo := -(board.BoardSize - pos.NumMoves()) / 2
	hi := (board.BoardSize + 1 - pos.NumMoves()) / 2
	for lo < hi {
		mid := lo + (hi-lo)/2
		// test near zero first; most positions are close to a draw
		if mid <= 0 && lo/2 < mid {
			mid = lo / 2
		} else if mid >= 0 && hi/2 > mid {
			mid = hi / 2
		}
		r := sr.negamax(pos, mid, mid+1)
		if sr.aborted {
			break
		}
		if r <= mid {
			hi = r
		} else {
			lo = r
		}
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "- window-test: [%d, %d]\n  returned: %d\n  window: [%d, %d]\n", mid, mid+1, r, lo, hi)
		}
	}
	if lo >= hi {
		return exactResult(lo, SourceSearch, sr.nodes)
	}
	log.Debug().Int("lower", lo).Int("upper", hi).Uint64("nodes", sr.nodes).Msg("search-aborted")
	return Result{Score: lo, Lower: lo, Upper: hi, Nodes: sr.nodes, Source: SourceSearch}
}

// MoveScores scores every column of pos. Illegal columns are flagged and
// left at zero. Children are solved on up to SetThreads goroutines.
func (s *Solver) MoveScores(ctx context.Context, pos board.Position) [board.Width]MoveScore {
	var scores [board.Width]MoveScore
	g := errgroup.Group{}
	g.SetLimit(s.threads)
	for col := 0; col < board.Width; col++ {
		scores[col].Column = col
		if pos.IsOver() || !pos.CanPlay(col) {
			continue
		}
		scores[col].Legal = true
		if pos.IsWinningMove(col) {
			w := pos.WinScore()
			scores[col].Score, scores[col].Lower, scores[col].Upper = w, w, w
			scores[col].Exact = true
			continue
		}
		child := pos
		child.PlayMove((pos.Mask() + board.BottomMask(col)) & board.ColumnMask(col))
		col := col
		g.Go(func() error {
			r := s.Solve(ctx, child)
			ms := &scores[col]
			ms.Exact = r.Exact
			ms.Lower = -r.Upper
			ms.Upper = -r.Lower
			ms.Score = ms.Lower
			return nil
		})
	}
	g.Wait()
	return scores
}

// BestMove returns the column with the highest score, preferring the
// center among equals.
func (s *Solver) BestMove(ctx context.Context, pos board.Position) (col int, score int, err error) {
	if pos.IsOver() {
		return 0, 0, ErrNoMoves
	}
	scores := s.MoveScores(ctx, pos)
	col = -1
	for _, c := range movegen.ColumnOrder {
		if scores[c].Legal && (col < 0 || scores[c].Score > score) {
			col, score = c, scores[c].Score
		}
	}
	return col, score, nil
}

// search is the state of one Solve call.
type search struct {
	ctx     context.Context
	tt      *TranspositionTable
	book    OpeningBook
	nodes   uint64
	budget  uint64
	aborted bool
}

func (sr *search) checkBudget() bool {
	if sr.budget > 0 && sr.nodes > sr.budget {
		sr.aborted = true
	} else if sr.nodes%ctxCheckInterval == 0 && sr.ctx.Err() != nil {
		sr.aborted = true
	}
	return sr.aborted
}

// negamax returns the score of pos if it lies strictly inside (alpha, beta);
// otherwise a bound on the side it fell. The player to move must not have
// an immediate win. After an abort the return value means nothing.
func (sr *search) negamax(pos board.Position, alpha, beta int) int {
	sr.nodes++
	if sr.checkBudget() {
		return 0
	}

	next := pos.PossibleNonLosingMoves()
	if next == 0 {
		return pos.LossScore()
	}
	// neither side can win with the last two stones
	if pos.NumMoves() >= board.BoardSize-2 {
		return 0
	}

	lo := -(board.BoardSize - 2 - pos.NumMoves()) / 2
	if alpha < lo {
		alpha = lo
		if alpha >= beta {
			return alpha
		}
	}

	key := pos.CanonicalKey()
	if sr.tt != nil {
		if val, ok := sr.tt.Get(key); ok {
			v, lower := decodeBound(val)
			if lower {
				if alpha < v {
					alpha = v
					if alpha >= beta {
						return alpha
					}
				}
			} else if beta > v {
				beta = v
				if alpha >= beta {
					return beta
				}
			}
		}
	}

	if sr.book != nil {
		if v, ok := sr.book.Lookup(pos); ok {
			return v
		}
	}

	hi := (board.BoardSize - 1 - pos.NumMoves()) / 2
	if beta > hi {
		beta = hi
		if alpha >= beta {
			return beta
		}
	}

	moves := movegen.Order(pos, next)
	for {
		mv, _, ok := moves.Next()
		if !ok {
			break
		}
		child := pos
		child.PlayMove(mv)
		score := -sr.negamax(child, -beta, -alpha)
		if sr.aborted {
			return 0
		}
		if score >= beta {
			sr.storeLower(key, score)
			return score
		}
		if score > alpha {
			alpha = score
		}
	}
	sr.storeUpper(key, alpha)
	return alpha
}

// Bounds outside [MinScore, MaxScore] are widened to fit the encoding, or
// dropped when widening would make them useless.
func (sr *search) storeUpper(key uint64, v int) {
	if sr.tt == nil || v > board.MaxScore {
		return
	}
	sr.tt.Put(key, encodeUpper(max(v, board.MinScore)))
}

func (sr *search) storeLower(key uint64, v int) {
	if sr.tt == nil || v < board.MinScore {
		return
	}
	sr.tt.Put(key, encodeLower(min(v, board.MaxScore)))
}
