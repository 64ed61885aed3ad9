package board

import "strings"

// FromMoveSequence builds a position from 1-indexed column digits, played
// left to right. Nothing is returned but the error if any move is illegal.
func FromMoveSequence(seq string) (Position, error) {
	var p Position
	for i, c := range seq {
		if c < '0' || c > '9' {
			return Position{}, &ParseError{Input: seq, Index: i, Char: c, Reason: ErrInvalidCharacter}
		}
		col := int(c-'0') - 1
		if col < 0 || col >= Width {
			return Position{}, &ParseError{Input: seq, Index: i, Char: c, Reason: ErrColumnOutOfRange}
		}
		if p.IsOver() {
			return Position{}, &ParseError{Input: seq, Index: i, Char: c, Reason: ErrGameOver}
		}
		if !p.CanPlay(col) {
			return Position{}, &ParseError{Input: seq, Index: i, Char: c, Reason: ErrColumnFull}
		}
		p.PlayMove((p.mask + BottomMask(col)) & ColumnMask(col))
	}
	return p, nil
}

// MustFromMoveSequence is like FromMoveSequence but panics on error. It is
// meant for tests and fixed tables.
func MustFromMoveSequence(seq string) Position {
	p, err := FromMoveSequence(seq)
	if err != nil {
		panic(err)
	}
	return p
}

// FromBoardString parses 42 cells written row by row from the top left.
// 'x' marks the player to move, 'o' the opponent and '.' an empty cell;
// any other character is ignored so the board may be laid out freely.
func FromBoardString(s string) (Position, error) {
	var p Position
	cells := 0
	var xs, os int
	for _, c := range strings.ToLower(s) {
		if c != '.' && c != 'x' && c != 'o' {
			continue
		}
		if cells >= BoardSize {
			cells++
			continue
		}
		row := Height - 1 - cells/Width
		col := cells % Width
		cells++
		if c == '.' {
			continue
		}
		bit := uint64(1) << (row + col*colBits)
		p.mask |= bit
		p.moves++
		if c == 'x' {
			p.current |= bit
			xs++
		} else {
			os++
		}
	}
	if cells != BoardSize {
		return Position{}, &ParseError{Input: s, Index: -1, Reason: ErrBoardLength}
	}
	for col := 0; col < Width; col++ {
		colMask := p.mask & ColumnMask(col)
		// discs must fill the column from the bottom without gaps
		if colMask&(colMask+BottomMask(col)) != 0 {
			return Position{}, &ParseError{Input: s, Index: -1, Reason: ErrFloatingDisc}
		}
	}
	// the opponent moved last, so they have as many discs as the player to
	// move or one more
	if os != xs && os != xs+1 {
		return Position{}, &ParseError{Input: s, Index: -1, Reason: ErrDiscCount}
	}
	if alignment(p.current) {
		return Position{}, &ParseError{Input: s, Index: -1, Reason: ErrGameOver}
	}
	return p, nil
}
