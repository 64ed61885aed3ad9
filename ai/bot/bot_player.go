// Package bot plays Connect Four at an adjustable strength. Every legal
// move is solved exactly; the difficulty controls how sharply the choice
// favors the best ones.
package bot

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"lukechampine.com/frand"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/movegen"
	"github.com/domino14/connect4/negamax"
)

// ErrNoMoves is returned for finished games.
var ErrNoMoves = negamax.ErrNoMoves

// RandSource supplies uniform numbers in [0, 1). *frand.RNG satisfies it.
type RandSource interface {
	Float64() float64
}

// NewRand returns a generator that always yields the same sequence for a
// given seed.
func NewRand(seed uint64) *frand.RNG {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return frand.NewCustom(key[:], 1024, 12)
}

type Player struct {
	solver     *negamax.Solver
	difficulty Difficulty
	rng        RandSource
}

func NewPlayer(solver *negamax.Solver, difficulty Difficulty, rng RandSource) *Player {
	return &Player{solver: solver, difficulty: difficulty, rng: rng}
}

func (p *Player) Difficulty() Difficulty {
	return p.difficulty
}

func (p *Player) SetDifficulty(d Difficulty) {
	p.difficulty = d
}

func (p *Player) SetRandSource(rng RandSource) {
	p.rng = rng
}

func (p *Player) Solver() *negamax.Solver {
	return p.solver
}

// ChooseMove solves every legal move of pos and picks one.
func (p *Player) ChooseMove(ctx context.Context, pos board.Position) (int, error) {
	if pos.IsOver() {
		return 0, ErrNoMoves
	}
	scores := p.solver.MoveScores(ctx, pos)
	return p.SelectMove(pos, scores)
}

// SelectMove picks a column given the scores of every move. It draws one
// number from the random source unless the choice is forced.
func (p *Player) SelectMove(pos board.Position, scores [board.Width]negamax.MoveScore) (int, error) {
	weights, ok := p.Weights(pos, scores)
	if !ok {
		return 0, ErrNoMoves
	}
	if p.difficulty >= MaxDifficulty {
		return argmax(weights), nil
	}
	cum := make([]float64, board.Width)
	floats.CumSum(cum, weights[:])
	r := p.rng.Float64() * cum[board.Width-1]
	col := -1
	for c := 0; c < board.Width; c++ {
		if weights[c] == 0 {
			continue
		}
		col = c
		if r < cum[c] {
			break
		}
	}
	log.Debug().Int("column", col).Float64("r", r).Floats64("weights", weights[:]).
		Stringer("difficulty", p.difficulty).Msg("ai-move-selected")
	return col, nil
}

// Weights returns the probability of choosing each column. Illegal
// columns get 0. ok is false when no column is legal.
func (p *Player) Weights(pos board.Position, scores [board.Width]negamax.MoveScore) (w [board.Width]float64, ok bool) {
	maxPossible := float64(pos.WinScore())
	if maxPossible <= 0 {
		maxPossible = 1
	}
	var legal []int
	best := math.Inf(-1)
	norm := make([]float64, board.Width)
	for _, c := range movegen.ColumnOrder {
		if !scores[c].Legal {
			continue
		}
		legal = append(legal, c)
		norm[c] = float64(scores[c].Score) / maxPossible
		best = math.Max(best, norm[c])
	}
	if len(legal) == 0 {
		return w, false
	}

	t := p.difficulty.Temperature()
	switch {
	case t == 0:
		// the first best in center-out order
		for _, c := range legal {
			if norm[c] == best {
				w[c] = 1
				return w, true
			}
		}
	case math.IsInf(t, 1):
		for _, c := range legal {
			w[c] = 1
		}
	default:
		for _, c := range legal {
			// shifted by the best score so the largest exponent is 0
			w[c] = math.Exp((norm[c] - best) / t)
		}
	}
	floats.Scale(1/floats.Sum(w[:]), w[:])
	return w, true
}

// argmax returns the heaviest column, nearest the center on ties.
func argmax(w [board.Width]float64) int {
	best := movegen.ColumnOrder[0]
	for _, c := range movegen.ColumnOrder {
		if w[c] > w[best] {
			best = c
		}
	}
	return best
}

// NewEntropyRand returns a generator seeded from system entropy.
func NewEntropyRand() *frand.RNG {
	return frand.New()
}
