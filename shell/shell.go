package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/ai/bot"
	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/negamax"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errExit              = errors.New("exit")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// ShellController drives a game against the solver from a readline prompt.
type ShellController struct {
	l        *readline.Instance
	config   *config.Config
	execPath string
	version  string

	pos     board.Position
	history []board.Position
	solver  *negamax.Solver
	book    *book.Book
	player  *bot.Player
	seed    uint64
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// NewShellController builds a controller from configuration. A book that
// fails to load is fatal unless books are disabled.
func NewShellController(cfg *config.Config, execPath, gitVersion string) (*ShellController, error) {
	sc, err := newController(cfg)
	if err != nil {
		return nil, err
	}
	sc.execPath = execPath
	sc.version = gitVersion
	sc.l, err = readline.NewEx(&readline.Config{
		Prompt:          "\033[31mconnect4>\033[0m ",
		HistoryFile:     "/tmp/connect4_readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func newController(cfg *config.Config) (*ShellController, error) {
	bk, err := book.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading opening book: %w", err)
	}
	solver := negamax.NewSolver()
	if mf := cfg.GetFloat64(config.ConfigTTableMemFraction); mf > 0 {
		negamax.GlobalTranspositionTable.Reset(mf)
		solver.SetTranspositionTable(negamax.GlobalTranspositionTable)
	} else {
		solver.SetTranspositionTable(negamax.NewTranspositionTable(cfg.GetInt(config.ConfigTTableSizePower)))
	}
	if bk != nil {
		solver.SetBook(bk)
	}
	solver.SetThreads(cfg.GetInt(config.ConfigSolverThreads))
	solver.SetNodeBudget(cfg.GetUint64(config.ConfigSolverNodeBudget))
	solver.SetTimeBudget(cfg.GetDuration(config.ConfigSolverTimeBudget))

	difficulty, err := bot.ParseDifficulty(cfg.GetString(config.ConfigAIDifficulty))
	if err != nil {
		return nil, err
	}
	sc := &ShellController{
		config: cfg,
		solver: solver,
		book:   bk,
		seed:   cfg.GetUint64(config.ConfigAISeed),
	}
	sc.player = bot.NewPlayer(solver, difficulty, newRandSource(sc.seed))
	return sc, nil
}

// newRandSource seeds the AI. Seed 0 asks for fresh entropy.
func newRandSource(seed uint64) bot.RandSource {
	if seed == 0 {
		return bot.NewEntropyRand()
	}
	return bot.NewRand(seed)
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.l.Stdout())
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a line into a command, its positional arguments
// and its -key value options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for idx := 1; idx < len(fields); idx++ {
		if strings.HasPrefix(fields[idx], "-") && len(fields[idx]) > 1 && !isNumber(fields[idx]) {
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := fields[idx][1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, fields[idx])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func isNumber(s string) bool {
	for _, c := range strings.TrimPrefix(s, "-") {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}

// commandContext is cancelled when the user presses Ctrl-C, which stops a
// running search and leaves the shell up. The returned stop func must be
// called once the command finishes.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// Execute runs a single command line and shows its result. The caller
// decides when to stop.
func (sc *ShellController) Execute(line string) {
	ctx, stop := commandContext()
	defer stop()
	resp, err := sc.ProcessLine(ctx, line)
	if err == errExit {
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
}

// ProcessLine runs one command and returns its output.
func (sc *ShellController) ProcessLine(ctx context.Context, line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		if err == errNoData {
			return nil, nil
		}
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "quit":
		return nil, errExit
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGame(cmd)
	case "moves":
		return sc.moves(cmd)
	case "board":
		return sc.setBoard(cmd)
	case "play":
		return sc.play(cmd)
	case "undo":
		return sc.undo(cmd)
	case "show":
		return msg(sc.pos.ToDisplayText()), nil
	case "solve":
		return sc.solve(ctx, cmd)
	case "scores":
		return sc.scores(ctx, cmd)
	case "best":
		return sc.best(ctx, cmd)
	case "ai":
		return sc.ai(ctx, cmd)
	case "set":
		return sc.set(cmd)
	case "book":
		return sc.bookInfo(ctx, cmd)
	case "ttable":
		return sc.ttableInfo(cmd)
	}
	log.Debug().Str("line", line).Msg("unknown-command")
	return nil, fmt.Errorf("unknown command %q; try help", cmd.cmd)
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()
	if sc.version != "" {
		sc.showMessage("connect4 " + sc.version)
	}
	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)

		ctx, stop := commandContext()
		resp, err := sc.ProcessLine(ctx, line)
		stop()
		if err == errExit {
			sig <- syscall.SIGINT
			break
		}
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil && resp.message != "" {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup releases anything the controller holds.
func (sc *ShellController) Cleanup() {
	log.Info().Uint64("nodes", sc.solver.Nodes()).Msg("shell-cleanup")
}
