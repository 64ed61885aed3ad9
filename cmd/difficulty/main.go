// difficulty shows how often each AI preset picks each column of a
// position, by sampling the AI's choice many times.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/domino14/connect4/ai/bot"
	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/negamax"
	"github.com/domino14/connect4/stats"
)

type simulation struct {
	difficulty bot.Difficulty
	trials     int
	counts     [board.Width]int
	bestHits   int
	// score of every chosen column, for the histogram
	chosen []float64
	scores stats.Statistic
}

// simulate draws trials selections from pre-computed move scores.
func simulate(pos board.Position, scores [board.Width]negamax.MoveScore,
	d bot.Difficulty, trials int, seed uint64) (*simulation, error) {

	best := lo.MaxBy(lo.Filter(scores[:], func(ms negamax.MoveScore, _ int) bool {
		return ms.Legal
	}), func(a, b negamax.MoveScore) bool {
		return a.Score > b.Score
	})
	p := bot.NewPlayer(nil, d, bot.NewRand(seed))
	sim := &simulation{difficulty: d, trials: trials, chosen: make([]float64, 0, trials)}
	for i := 0; i < trials; i++ {
		col, err := p.SelectMove(pos, scores)
		if err != nil {
			return nil, err
		}
		sim.counts[col]++
		if scores[col].Score == best.Score {
			sim.bestHits++
		}
		sim.chosen = append(sim.chosen, float64(scores[col].Score))
		sim.scores.Push(float64(scores[col].Score))
	}
	return sim, nil
}

func (sim *simulation) write(w io.Writer, scores [board.Width]negamax.MoveScore) {
	fmt.Fprintf(w, "%s (temperature %.3f), %d trials\n",
		sim.difficulty, sim.difficulty.Temperature(), sim.trials)
	fmt.Fprintf(w, "  %-8s%-8s%-10s%-10s\n", "Column", "Score", "Count", "% of time")
	for col := 0; col < board.Width; col++ {
		if !scores[col].Legal {
			continue
		}
		fmt.Fprintf(w, "  %-8d%-8d%-10d%-10.2f\n", col+1, scores[col].Score, sim.counts[col],
			100*float64(sim.counts[col])/float64(sim.trials))
	}
	p, hw := stats.ProportionInterval(sim.bestHits, sim.trials, 95)
	fmt.Fprintf(w, "  best move %.2f%% +/- %.2f%% (95%%)\n", 100*p, 100*hw)
	fmt.Fprintf(w, "  mean score %.3f (stdev %.3f)\n", sim.scores.Mean(), sim.scores.Stdev())
	if sim.scores.Min() != sim.scores.Max() {
		histogram.Fprint(w, histogram.Hist(10, sim.chosen), histogram.Linear(40))
	}
}

func main() {
	fs := pflag.NewFlagSet("difficulty", pflag.ExitOnError)
	moves := fs.String("moves", "444343533654", "position to sample, as a move sequence")
	trials := fs.Int("trials", 10000, "selections per difficulty")
	seed := fs.Uint64("seed", 1, "random seed")
	sizePower := fs.Int("ttable-size-power", negamax.DefaultTableSizePower, "transposition table has 2^n slots")
	fs.Parse(os.Args[1:])

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	pos, err := board.FromMoveSequence(*moves)
	if err != nil {
		log.Fatal().Err(err).Msg("bad position")
	}
	if pos.IsOver() {
		log.Fatal().Msg("the game is over")
	}
	s := negamax.NewSolver()
	s.SetTranspositionTable(negamax.NewTranspositionTable(*sizePower))
	ts := time.Now()
	scores := s.MoveScores(context.Background(), pos)
	log.Info().Dur("elapsed", time.Since(ts)).Uint64("nodes", s.Nodes()).Msg("position-scored")

	fmt.Print(pos.ToDisplayText())
	for _, preset := range bot.Presets() {
		sim, err := simulate(pos, scores, preset.Difficulty, *trials, *seed)
		if err != nil {
			log.Fatal().Err(err).Msg("simulation failed")
		}
		sim.write(os.Stdout, scores)
	}
}
