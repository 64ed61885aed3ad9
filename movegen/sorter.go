package movegen

import "github.com/domino14/connect4/board"

type sortEntry struct {
	move  uint64
	col   int
	score int
}

// Sorter is a fixed-capacity insertion sorter for the moves of one node.
// Next pops the highest score first; among equal scores the entry added
// last pops first.
type Sorter struct {
	size    int
	entries [board.Width]sortEntry
}

// Add inserts a move given as its single-bit cell mask. At most
// board.Width moves fit.
func (s *Sorter) Add(move uint64, col, score int) {
	pos := s.size
	s.size++
	for ; pos > 0 && s.entries[pos-1].score > score; pos-- {
		s.entries[pos] = s.entries[pos-1]
	}
	s.entries[pos] = sortEntry{move: move, col: col, score: score}
}

// Next removes and returns the best remaining move. ok is false once the
// sorter is empty.
func (s *Sorter) Next() (move uint64, col int, ok bool) {
	if s.size == 0 {
		return 0, 0, false
	}
	s.size--
	e := s.entries[s.size]
	return e.move, e.col, true
}

func (s *Sorter) Len() int {
	return s.size
}

func (s *Sorter) Reset() {
	s.size = 0
}
