package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/connect4/ai/bot"
	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/negamax"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func (c CmdOptions) StringArray(key string) []string {
	return c[key]
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(usage()), nil
	}
	return msg(usageTopic(cmd.args[0])), nil
}

func (sc *ShellController) setPosition(pos board.Position) {
	sc.history = sc.history[:0]
	sc.pos = pos
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	sc.setPosition(board.NewPosition())
	return msg(sc.pos.ToDisplayText()), nil
}

func (sc *ShellController) moves(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: moves <sequence>, for example moves 4453")
	}
	pos, err := board.FromMoveSequence(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.setPosition(pos)
	return msg(sc.pos.ToDisplayText()), nil
}

func (sc *ShellController) setBoard(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: board <cells>; see help board")
	}
	pos, err := board.FromBoardString(strings.Join(cmd.args, ""))
	if err != nil {
		return nil, err
	}
	sc.setPosition(pos)
	return msg(sc.pos.ToDisplayText()), nil
}

// playColumns plays 1-based columns in order. Nothing is played if any of
// them is illegal.
func (sc *ShellController) playColumns(cols []string) error {
	pos := sc.pos
	var history []board.Position
	for _, c := range cols {
		col, err := strconv.Atoi(c)
		if err != nil {
			return fmt.Errorf("column %q: %w", c, err)
		}
		history = append(history, pos)
		if err := pos.Play(col - 1); err != nil {
			return err
		}
	}
	sc.history = append(sc.history, history...)
	sc.pos = pos
	return nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <column> [column ...]")
	}
	if err := sc.playColumns(cmd.args); err != nil {
		return nil, err
	}
	return msg(sc.pos.ToDisplayText() + sc.outcome()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	n, err := cmd.options.IntDefault("n", 1)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(sc.history) {
		return nil, fmt.Errorf("can undo between 1 and %d moves", len(sc.history))
	}
	sc.pos = sc.history[len(sc.history)-n]
	sc.history = sc.history[:len(sc.history)-n]
	return msg(sc.pos.ToDisplayText()), nil
}

// outcome describes a finished game, or nothing.
func (sc *ShellController) outcome() string {
	switch {
	case sc.pos.IsWon():
		// the player who just moved connected four
		if sc.pos.NumMoves()%2 == 1 {
			return "X wins.\n"
		}
		return "O wins.\n"
	case sc.pos.IsFull():
		return "Draw.\n"
	}
	return ""
}

// describeScore turns a score into words for the player to move at pos.
func describeScore(pos board.Position, score int) string {
	if score == 0 {
		return "draw with perfect play"
	}
	verb := "wins"
	// the winning move is played by the side whose parity matches
	parity := pos.NumMoves() % 2
	if score < 0 {
		verb = "loses"
		parity = 1 - parity
	}
	s := score
	if s < 0 {
		s = -s
	}
	winAt := board.BoardSize - 2*s
	if parity == 1 {
		winAt++
	}
	plies := winAt - pos.NumMoves() + 1
	return fmt.Sprintf("player to move %s; game ends in %d plies", verb, plies)
}

func (sc *ShellController) solve(ctx context.Context, cmd *shellcmd) (*Response, error) {
	pos := sc.pos
	if seq := cmd.options.String("moves"); seq != "" {
		var err error
		if pos, err = board.FromMoveSequence(seq); err != nil {
			return nil, err
		}
	}
	ts := time.Now()
	res := sc.solver.Solve(ctx, pos)
	elapsed := time.Since(ts)
	var sb strings.Builder
	if res.Exact {
		fmt.Fprintf(&sb, "score %d (%s)\n", res.Score, describeScore(pos, res.Score))
	} else {
		fmt.Fprintf(&sb, "search stopped early: score in [%d, %d]\n", res.Lower, res.Upper)
	}
	fmt.Fprintf(&sb, "source %s, %d nodes, %s", res.Source, res.Nodes, elapsed.Round(time.Microsecond))
	return msg(sb.String()), nil
}

func formatMoveScore(ms negamax.MoveScore) string {
	switch {
	case !ms.Legal:
		return "-"
	case ms.Exact:
		return strconv.Itoa(ms.Score)
	}
	return fmt.Sprintf("[%d,%d]", ms.Lower, ms.Upper)
}

func (sc *ShellController) scores(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if sc.pos.IsOver() {
		return nil, negamax.ErrNoMoves
	}
	scores := sc.solver.MoveScores(ctx, sc.pos)
	cells := lo.Map(scores[:], func(ms negamax.MoveScore, _ int) string {
		return fmt.Sprintf("%6s", formatMoveScore(ms))
	})
	var sb strings.Builder
	for col := 1; col <= board.Width; col++ {
		fmt.Fprintf(&sb, "%6d", col)
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Join(cells, ""))
	return msg(sb.String()), nil
}

func (sc *ShellController) best(ctx context.Context, cmd *shellcmd) (*Response, error) {
	col, score, err := sc.solver.BestMove(ctx, sc.pos)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("best move: column %d, score %d", col+1, score)), nil
}

func (sc *ShellController) ai(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if d := cmd.options.String("difficulty"); d != "" {
		difficulty, err := bot.ParseDifficulty(d)
		if err != nil {
			return nil, err
		}
		sc.player.SetDifficulty(difficulty)
	}
	col, err := sc.player.ChooseMove(ctx, sc.pos)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ai interrupted, nothing played: %w", err)
	}
	if cmd.options.Bool("dry") {
		return msg(fmt.Sprintf("%s would play column %d", sc.player.Difficulty(), col+1)), nil
	}
	if err := sc.playColumns([]string{strconv.Itoa(col + 1)}); err != nil {
		return nil, err
	}
	log.Debug().Int("column", col+1).Stringer("difficulty", sc.player.Difficulty()).Msg("ai-played")
	return msg(fmt.Sprintf("AI plays column %d\n%s%s", col+1, sc.pos.ToDisplayText(), sc.outcome())), nil
}

func (sc *ShellController) optionsText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s %s\n", "difficulty", sc.player.Difficulty())
	fmt.Fprintf(&sb, "%-12s %d\n", "seed", sc.seed)
	fmt.Fprintf(&sb, "%-12s %d\n", "threads", sc.config.GetInt(config.ConfigSolverThreads))
	fmt.Fprintf(&sb, "%-12s %d\n", "node-budget", sc.config.GetUint64(config.ConfigSolverNodeBudget))
	fmt.Fprintf(&sb, "%-12s %s", "time-budget", sc.config.GetDuration(config.ConfigSolverTimeBudget))
	return sb.String()
}

// set changes one shell option. The solver and AI pick the change up on
// their next call.
func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.optionsText()), nil
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: set <option> <value>")
	}
	opt, val := cmd.args[0], cmd.args[1]
	switch opt {
	case "difficulty":
		d, err := bot.ParseDifficulty(val)
		if err != nil {
			return nil, err
		}
		sc.player.SetDifficulty(d)
		val = d.String()
	case "seed":
		seed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, err
		}
		sc.seed = seed
		sc.player.SetRandSource(newRandSource(seed))
	case "threads":
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, errors.New("threads must be at least 1")
		}
		sc.solver.SetThreads(n)
		sc.config.Set(config.ConfigSolverThreads, n)
	case "node-budget":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, err
		}
		sc.solver.SetNodeBudget(n)
		sc.config.Set(config.ConfigSolverNodeBudget, n)
	case "time-budget":
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, err
		}
		sc.solver.SetTimeBudget(d)
		sc.config.Set(config.ConfigSolverTimeBudget, d)
	default:
		return nil, fmt.Errorf("unknown option %q", opt)
	}
	return msg("set " + opt + " to " + val), nil
}

func (sc *ShellController) bookInfo(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if sc.book == nil {
		return msg("no opening book loaded"), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "opening book: %d positions, max depth %d\n", sc.book.Len(), sc.book.MaxDepth())
	if v, ok := sc.book.Lookup(sc.pos); ok {
		fmt.Fprintf(&sb, "current position: %d", v)
	} else {
		sb.WriteString("current position: not in book")
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) ttableInfo(cmd *shellcmd) (*Response, error) {
	tt := sc.solver.TranspositionTable()
	if tt == nil {
		return msg("no transposition table in use"), nil
	}
	if cmd.options.Bool("clear") {
		tt.Clear()
		return msg("transposition table cleared"), nil
	}
	st := tt.Stats()
	return msg(fmt.Sprintf("slots %d, created %d, lookups %d, hits %d, type-2 collisions %d",
		tt.Size(), st.Created, st.Lookups, st.Hits, st.T2Collisions)), nil
}
