// Package movegen orders the candidate moves of a position for the search.
// Columns near the center take part in more alignments, so they are tried
// first when nothing else tells them apart.
package movegen

import "github.com/domino14/connect4/board"

// ColumnOrder is the static center-out exploration order.
var ColumnOrder = [board.Width]int{3, 2, 4, 1, 5, 0, 6}

// Order fills a sorter with the moves set in the moves bitmap, scored by
// the number of winning cells each one creates. Ties come out in
// center-out order.
func Order(pos board.Position, moves uint64) Sorter {
	var s Sorter
	for i := board.Width - 1; i >= 0; i-- {
		col := ColumnOrder[i]
		if m := moves & board.ColumnMask(col); m != 0 {
			s.Add(m, col, pos.MoveScore(m))
		}
	}
	return s
}

// OrderedColumns lists the columns worth exploring from pos, best first.
// An immediate win is returned alone. Otherwise the moves that do not hand
// the opponent a win are ordered dynamically; when every move loses, all
// legal columns come back in static order. A finished game has no columns.
func OrderedColumns(pos board.Position) []int {
	if pos.IsOver() {
		return nil
	}
	for _, col := range ColumnOrder {
		if pos.IsWinningMove(col) {
			return []int{col}
		}
	}
	next := pos.PossibleNonLosingMoves()
	if next == 0 {
		return LegalColumns(pos)
	}
	s := Order(pos, next)
	cols := make([]int, 0, s.Len())
	for {
		_, col, ok := s.Next()
		if !ok {
			break
		}
		cols = append(cols, col)
	}
	return cols
}

// LegalColumns returns every playable column in static order.
func LegalColumns(pos board.Position) []int {
	if pos.IsOver() {
		return nil
	}
	cols := make([]int, 0, board.Width)
	for _, col := range ColumnOrder {
		if pos.CanPlay(col) {
			cols = append(cols, col)
		}
	}
	return cols
}
