package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/connect4/ai/bot"
	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/negamax"
)

// exact scores of "444343533654"
func fixtureScores() [board.Width]negamax.MoveScore {
	var scores [board.Width]negamax.MoveScore
	for col, v := range []int{1, 9, 8, 8, 13, 7, 7} {
		scores[col] = negamax.MoveScore{Column: col, Legal: true, Exact: true, Score: v, Lower: v, Upper: v}
	}
	return scores
}

func TestSimulateImpossible(t *testing.T) {
	is := is.New(t)
	pos := board.MustFromMoveSequence("444343533654")
	sim, err := simulate(pos, fixtureScores(), bot.MaxDifficulty, 500, 3)
	is.NoErr(err)
	is.Equal(sim.counts[4], 500)
	is.Equal(sim.bestHits, 500)
	is.Equal(sim.scores.Mean(), 13.0)
}

func TestSimulateEasy(t *testing.T) {
	is := is.New(t)
	pos := board.MustFromMoveSequence("444343533654")
	easy, err := bot.ParseDifficulty("easy")
	is.NoErr(err)
	sim, err := simulate(pos, fixtureScores(), easy, 2000, 3)
	is.NoErr(err)

	total := 0
	for col, c := range sim.counts {
		total += c
		if col != 4 {
			is.True(c < sim.counts[4])
		}
	}
	is.Equal(total, 2000)
	is.Equal(sim.bestHits, sim.counts[4])
	is.True(sim.bestHits < 2000)

	// same seed, same draws
	again, err := simulate(pos, fixtureScores(), easy, 2000, 3)
	is.NoErr(err)
	is.Equal(again.counts, sim.counts)

	var buf bytes.Buffer
	sim.write(&buf, fixtureScores())
	out := buf.String()
	is.True(strings.HasPrefix(out, "easy (temperature 0.250), 2000 trials\n"))
	is.True(strings.Contains(out, "best move "))
}
