// benchmark solves test sets of "<moves> <score>" lines and reports
// accuracy and speed.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/negamax"
	"github.com/domino14/connect4/stats"
)

type testCase struct {
	line  int
	moves string
	pos   board.Position
	score int
}

type caseResult struct {
	testCase
	got     negamax.Result
	elapsed time.Duration
}

func (r caseResult) correct() bool {
	return r.got.Exact && r.got.Score == r.score
}

type report struct {
	results []caseResult
	times   stats.Statistic // microseconds
	nodes   stats.Statistic
}

func readTestSet(r io.Reader) ([]testCase, error) {
	var cases []testCase
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want <moves> <score>, got %q", ln, line)
		}
		pos, err := board.FromMoveSequence(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln, err)
		}
		score, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln, err)
		}
		cases = append(cases, testCase{line: ln, moves: fields[0], pos: pos, score: score})
	}
	return cases, sc.Err()
}

// run solves every case in order. With reset the transposition table is
// cleared before each case.
func run(ctx context.Context, s *negamax.Solver, cases []testCase, reset bool) *report {
	rep := &report{}
	for _, c := range cases {
		if ctx.Err() != nil {
			break
		}
		if reset {
			s.TranspositionTable().Clear()
		}
		ts := time.Now()
		got := s.Solve(ctx, c.pos)
		elapsed := time.Since(ts)
		r := caseResult{testCase: c, got: got, elapsed: elapsed}
		if !r.correct() {
			log.Warn().Int("line", c.line).Str("moves", c.moves).Int("expected", c.score).
				Int("got", got.Score).Bool("exact", got.Exact).Msg("wrong-score")
		}
		rep.results = append(rep.results, r)
		rep.times.Push(float64(elapsed.Microseconds()))
		rep.nodes.Push(float64(got.Nodes))
	}
	return rep
}

func (rep *report) accuracy() float64 {
	if len(rep.results) == 0 {
		return 0
	}
	return float64(lo.CountBy(rep.results, caseResult.correct)) / float64(len(rep.results))
}

// kposPerSecond is thousands of nodes searched per second of solving.
func (rep *report) kposPerSecond() float64 {
	if rep.times.Sum() == 0 {
		return 0
	}
	return rep.nodes.Sum() / rep.times.Sum() * 1e6 / 1e3
}

func (rep *report) write(w io.Writer, name string) {
	fmt.Fprintf(w, "%s: %d positions\n", name, len(rep.results))
	fmt.Fprintf(w, "  accuracy   %.2f%%\n", 100*rep.accuracy())
	fmt.Fprintf(w, "  mean time  %.1fus (stdev %.1f, max %.0f)\n",
		rep.times.Mean(), rep.times.Stdev(), rep.times.Max())
	fmt.Fprintf(w, "  mean nodes %.1f (stdev %.1f)\n", rep.nodes.Mean(), rep.nodes.Stdev())
	fmt.Fprintf(w, "  speed      %.1f kpos/s\n", rep.kposPerSecond())
}

func main() {
	fs := pflag.NewFlagSet("benchmark", pflag.ExitOnError)
	sizePower := fs.Int("ttable-size-power", negamax.DefaultTableSizePower, "transposition table has 2^n slots")
	reset := fs.Bool("reset", true, "clear the transposition table before each position")
	useBook := fs.Bool("book", false, "consult the embedded opening book")
	debug := fs.Bool("debug", false, "debug logging on")
	fs.Parse(os.Args[1:])

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: benchmark [flags] <testset> [testset ...]")
		os.Exit(2)
	}

	s := negamax.NewSolver()
	s.SetTranspositionTable(negamax.NewTranspositionTable(*sizePower))
	if *useBook {
		bk, err := book.Default()
		if err != nil {
			log.Fatal().Err(err).Msg("could not load book")
		}
		s.SetBook(bk)
	}

	for _, fn := range fs.Args() {
		f, err := os.Open(fn)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open test set")
		}
		cases, err := readTestSet(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("file", fn).Msg("could not read test set")
		}
		rep := run(context.Background(), s, cases, *reset)
		rep.write(os.Stdout, fn)
	}
}
