package board

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove = errors.New("invalid move")
	ErrParse       = errors.New("cannot parse position")

	ErrColumnOutOfRange = errors.New("column out of range")
	ErrColumnFull       = errors.New("column is full")
	ErrGameOver         = errors.New("game is already over")
	ErrInvalidCharacter = errors.New("invalid character")
	ErrBoardLength      = errors.New("wrong number of cells")
	ErrFloatingDisc     = errors.New("disc is not supported")
	ErrDiscCount        = errors.New("disc counts do not match a legal game")
)

// MoveError is returned by Play. It matches ErrInvalidMove as well as its
// Reason with errors.Is.
type MoveError struct {
	Column int // 0-based
	Reason error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("invalid move in column %d: %v", e.Column+1, e.Reason)
}

func (e *MoveError) Unwrap() []error {
	return []error{ErrInvalidMove, e.Reason}
}

// ParseError is returned when a move sequence or board string is rejected.
// Index is the offset of the offending character, or -1 when the input as a
// whole is bad.
type ParseError struct {
	Input  string
	Index  int
	Char   rune
	Reason error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("parse %q: %v", e.Input, e.Reason)
	}
	return fmt.Sprintf("parse %q at index %d (%q): %v", e.Input, e.Index, e.Char, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Reason}
}
