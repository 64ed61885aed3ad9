package shell

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/domino14/connect4/ai/bot"
	"github.com/domino14/connect4/movegen"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string // e.g. "-moves"
	Args    []string // non-option arguments
}

var commandMetadata = map[string]CommandMetadata{
	"solve":  {Options: []string{"-moves"}},
	"undo":   {Options: []string{"-n"}},
	"ai":     {Options: []string{"-dry", "-difficulty"}},
	"ttable": {Options: []string{"-clear"}},
	"set": {
		Args: []string{"difficulty", "seed", "threads", "node-budget", "time-budget"},
	},
	"help": {
		Args: []string{"board", "scores", "set", "ai"},
	},
}

// Common command names for command completion
var commandNames = []string{
	"help", "new", "moves", "board", "play", "undo", "show", "solve",
	"scores", "best", "ai", "set", "book", "ttable", "exit",
}

var boolValues = []string{"true", "false"}

func difficultyNames() []string {
	return lo.Map(bot.Presets(), func(p bot.Preset, _ int) string { return p.Name })
}

// playableColumns lists the legal 1-based columns of the current position,
// center first.
func (c *ShellCompleter) playableColumns() []string {
	return lo.Map(movegen.LegalColumns(c.sc.pos), func(col int, _ int) string {
		return strconv.Itoa(col + 1)
	})
}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		// unbalanced quotes
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		switch {
		case lastCompleteField == "-dry" || lastCompleteField == "-clear":
			completions = boolValues
		case lastCompleteField == "-difficulty":
			completions = difficultyNames()
		case cmdName == "set" && lastCompleteField == "difficulty":
			completions = difficultyNames()
		case cmdName == "play":
			completions = c.playableColumns()
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else if cmdName != "set" || len(fields) == 1 || (len(fields) == 2 && !endsWithSpace) {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			// only the part still to be typed
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
