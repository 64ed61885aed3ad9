// make_book solves every position up to a depth and writes an opening book.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/bookgen"
	"github.com/domino14/connect4/negamax"
)

func main() {
	fs := pflag.NewFlagSet("make_book", pflag.ExitOnError)
	depth := fs.Int("depth", 8, "deepest ply count stored in the book")
	root := fs.String("root", "", "move sequence to start from; empty is the empty board")
	threads := fs.Int("threads", runtime.NumCPU(), "solver goroutines")
	sizePower := fs.Int("ttable-size-power", negamax.DefaultTableSizePower, "transposition table has 2^n slots")
	out := fs.String("out", "opening.book", "output file")
	debug := fs.Bool("debug", false, "debug logging on")
	fs.Parse(os.Args[1:])

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	rootPos, err := board.FromMoveSequence(*root)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad root")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(logger.WithContext(ctx), *out, bookgen.Options{
		MaxDepth:       *depth,
		Root:           rootPos,
		Threads:        *threads,
		TableSizePower: *sizePower,
	})
	stop()
	if err != nil {
		logger.Fatal().Err(err).Msg("book generation failed")
	}
}

// run generates a book and writes it to out. Nothing is written if
// generation fails.
func run(ctx context.Context, out string, opts bookgen.Options) error {
	ts := time.Now()
	bk, err := bookgen.Generate(ctx, opts)
	if err != nil {
		return err
	}
	if err := writeBook(out, bk); err != nil {
		return fmt.Errorf("could not write book: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("out", out).Int("records", bk.Len()).Int("max-depth", bk.MaxDepth()).
		Dur("elapsed", time.Since(ts)).Msg("book-written")
	return nil
}

// writeBook writes to a temporary file and renames it into place.
func writeBook(path string, bk io.WriterTo) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := bk.WriteTo(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}
