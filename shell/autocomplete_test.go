package shell

import (
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

	"github.com/domino14/connect4/board"
)

func complete(c *ShellCompleter, line string) []string {
	matches, _ := c.Do([]rune(line), len([]rune(line)))
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = string(m)
	}
	return out
}

func TestCompleteCommands(t *testing.T) {
	is := is.New(t)
	c := NewShellCompleter(&ShellController{})

	is.Equal(complete(c, "sc"), []string{"ores"})
	is.Equal(complete(c, "s"), []string{"how", "olve", "cores", "et"})
	is.Equal(len(complete(c, "")), len(commandNames))
	is.Equal(complete(c, "solve -"), []string{"moves"})
	is.Equal(complete(c, "ai -dry "), []string{"true", "false"})
	is.Equal(complete(c, "ttable -clear t"), []string{"rue"})
}

func TestCompleteArgs(t *testing.T) {
	sc := &ShellController{pos: board.MustFromMoveSequence("444444")}
	c := NewShellCompleter(sc)

	assert.Equal(t, []string{"3", "5", "2", "6", "1", "7"}, complete(c, "play "))
	assert.Equal(t, []string{"ifficulty"}, complete(c, "set d"))
	assert.Equal(t, []string{"easy", "medium", "hard", "impossible"}, complete(c, "set difficulty "))
	assert.Equal(t, []string{"mpossible"}, complete(c, "ai -difficulty i"))
	assert.Empty(t, complete(c, "set seed "))
	assert.Equal(t, []string{"oard"}, complete(c, "help b"))
	assert.Empty(t, complete(c, "launch "))
}
