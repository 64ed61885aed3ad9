package board

import (
	"math/bits"
	"strings"
)

// A Position is a Connect Four board encoded as two bitboards.
//
// The 7x6 grid is stored column-major with one guard bit on top of every
// column, so each column takes seven bits:
//
//	  6 13 20 27 34 41 48
//	 ---------------------
//	| 5 12 19 26 33 40 47 |
//	| 4 11 18 25 32 39 46 |
//	| 3 10 17 24 31 38 45 |
//	| 2  9 16 23 30 37 44 |
//	| 1  8 15 22 29 36 43 |
//	| 0  7 14 21 28 35 42 |
//	 ---------------------
//
// current holds the discs of the player to move and mask holds every disc.
// The guard row is never set in mask; it keeps shifted alignments from
// bleeding into the neighbouring column.
type Position struct {
	current uint64
	mask    uint64
	moves   int
}

const (
	Width     = 7
	Height    = 6
	BoardSize = Width * Height

	// MinScore and MaxScore bound every score that is not an immediate win
	// or an immediate loss.
	MinScore = -BoardSize/2 + 3
	MaxScore = (BoardSize+1)/2 - 3

	colBits = Height + 1
)

const (
	bottomMask uint64 = 1<<(0*colBits) | 1<<(1*colBits) | 1<<(2*colBits) |
		1<<(3*colBits) | 1<<(4*colBits) | 1<<(5*colBits) | 1<<(6*colBits)
	boardMask uint64 = bottomMask * ((1 << Height) - 1)
)

// TopMask returns a bitmask with a single bit set in the top cell of col.
func TopMask(col int) uint64 {
	return 1 << (Height - 1 + col*colBits)
}

// BottomMask returns a bitmask with a single bit set in the bottom cell of col.
func BottomMask(col int) uint64 {
	return 1 << (col * colBits)
}

// ColumnMask returns a bitmask covering the playable cells of col.
func ColumnMask(col int) uint64 {
	return ((1 << Height) - 1) << (col * colBits)
}

// NewPosition returns the empty starting position.
func NewPosition() Position {
	return Position{}
}

// NumMoves returns the number of plies played so far.
func (p Position) NumMoves() int {
	return p.moves
}

// Current returns the bitboard of the player to move.
func (p Position) Current() uint64 {
	return p.current
}

// Mask returns the bitboard of all occupied cells.
func (p Position) Mask() uint64 {
	return p.mask
}

// Opponent returns the bitboard of the player who moved last.
func (p Position) Opponent() uint64 {
	return p.current ^ p.mask
}

// CanPlay reports whether the top cell of col is still free.
func (p Position) CanPlay(col int) bool {
	if col < 0 || col >= Width {
		return false
	}
	return p.mask&TopMask(col) == 0
}

// ColumnHeight returns the number of discs in col.
func (p Position) ColumnHeight(col int) int {
	return bits.OnesCount64(p.mask & ColumnMask(col))
}

// Play drops a disc of the player to move into col. The receiver is left
// untouched when the move is rejected.
func (p *Position) Play(col int) error {
	switch {
	case col < 0 || col >= Width:
		return &MoveError{Column: col, Reason: ErrColumnOutOfRange}
	case p.IsOver():
		return &MoveError{Column: col, Reason: ErrGameOver}
	case !p.CanPlay(col):
		return &MoveError{Column: col, Reason: ErrColumnFull}
	}
	p.PlayMove((p.mask + BottomMask(col)) & ColumnMask(col))
	return nil
}

// PlayMove plays a move given as a single-bit mask of the cell being
// filled. It does no validation and is meant for the search, which only
// generates moves from Possible.
func (p *Position) PlayMove(move uint64) {
	p.current ^= p.mask
	p.mask |= move
	p.moves++
}

// Possible returns a mask with one bit per playable column, on the cell a
// disc would land in.
func (p Position) Possible() uint64 {
	return (p.mask + bottomMask) & boardMask
}

// IsWinningMove reports whether playing col makes four in a row for the
// player to move.
func (p Position) IsWinningMove(col int) bool {
	if col < 0 || col >= Width {
		return false
	}
	return p.winningPositions()&p.Possible()&ColumnMask(col) != 0
}

// CanWinNext reports whether any playable column wins immediately.
func (p Position) CanWinNext() bool {
	return p.winningPositions()&p.Possible() != 0
}

// IsWon reports whether the player who moved last has four in a row.
func (p Position) IsWon() bool {
	return alignment(p.current ^ p.mask)
}

// IsFull reports whether every cell is occupied.
func (p Position) IsFull() bool {
	return p.moves == BoardSize
}

// IsOver reports whether the game has ended, by a win or a full board.
func (p Position) IsOver() bool {
	return p.IsFull() || p.IsWon()
}

// PossibleNonLosingMoves returns the playable cells that do not hand the
// opponent an immediate win. Zero means every move loses.
func (p Position) PossibleNonLosingMoves() uint64 {
	possible := p.Possible()
	opponentWins := p.opponentWinningPositions()
	forced := possible & opponentWins
	if forced != 0 {
		if forced&(forced-1) != 0 {
			// two threats at once cannot both be blocked
			return 0
		}
		possible = forced
	}
	// never play directly below an opponent's winning cell
	return possible &^ (opponentWins >> 1)
}

// MoveScore counts the winning cells the player to move would own after
// playing move.
func (p Position) MoveScore(move uint64) int {
	return bits.OnesCount64(winningPositions(p.current|move, p.mask))
}

// WinScore is the score of winning with the next stone.
func (p Position) WinScore() int {
	return (BoardSize + 1 - p.moves) / 2
}

// LossScore is the score of losing to the opponent's next stone.
func (p Position) LossScore() int {
	return -(BoardSize - p.moves) / 2
}

// TerminalScore is the score of a finished game from the perspective of
// the player to move: 0 for a draw, the loss to the last stone otherwise.
func (p Position) TerminalScore() int {
	if p.IsWon() {
		return -(BoardSize + 2 - p.moves) / 2
	}
	return 0
}

// Key identifies the position uniquely. Within a column, current+mask
// never carries past the guard bit, so the columns stay independent.
func (p Position) Key() uint64 {
	return p.current + p.mask
}

// MirrorKey is the key of the horizontally mirrored position.
func (p Position) MirrorKey() uint64 {
	return mirrorColumns(p.Key())
}

// CanonicalKey is the smaller of Key and MirrorKey. Mirrored positions
// have equal scores, so caches address positions by this key.
func (p Position) CanonicalKey() uint64 {
	k := p.Key()
	if m := mirrorColumns(k); m < k {
		return m
	}
	return k
}

// Mirror returns the horizontally mirrored position.
func (p Position) Mirror() Position {
	return Position{
		current: mirrorColumns(p.current),
		mask:    mirrorColumns(p.mask),
		moves:   p.moves,
	}
}

// Equals compares boards and move counts.
func (p Position) Equals(o Position) bool {
	return p == o
}

func mirrorColumns(b uint64) uint64 {
	const chunk = (1 << colBits) - 1
	var m uint64
	for col := 0; col < Width; col++ {
		c := (b >> (col * colBits)) & chunk
		m |= c << ((Width - 1 - col) * colBits)
	}
	return m
}

func (p Position) winningPositions() uint64 {
	return winningPositions(p.current, p.mask)
}

func (p Position) opponentWinningPositions() uint64 {
	return winningPositions(p.current^p.mask, p.mask)
}

// winningPositions returns every free cell that would complete four in a
// row for the owner of pos, reachable or not.
func winningPositions(pos, mask uint64) uint64 {
	// vertical
	r := (pos << 1) & (pos << 2) & (pos << 3)

	// horizontal
	p := (pos << colBits) & (pos << (2 * colBits))
	r |= p & (pos << (3 * colBits))
	r |= p & (pos >> colBits)
	p = (pos >> colBits) & (pos >> (2 * colBits))
	r |= p & (pos << colBits)
	r |= p & (pos >> (3 * colBits))

	// diagonal 1
	p = (pos << Height) & (pos << (2 * Height))
	r |= p & (pos << (3 * Height))
	r |= p & (pos >> Height)
	p = (pos >> Height) & (pos >> (2 * Height))
	r |= p & (pos << Height)
	r |= p & (pos >> (3 * Height))

	// diagonal 2
	p = (pos << (Height + 2)) & (pos << (2 * (Height + 2)))
	r |= p & (pos << (3 * (Height + 2)))
	r |= p & (pos >> (Height + 2))
	p = (pos >> (Height + 2)) & (pos >> (2 * (Height + 2)))
	r |= p & (pos << (Height + 2))
	r |= p & (pos >> (3 * (Height + 2)))

	return r & (boardMask ^ mask)
}

// alignment reports whether pos contains four in a row.
func alignment(pos uint64) bool {
	for _, shift := range [4]uint{colBits, Height, Height + 2, 1} {
		m := pos & (pos >> shift)
		if m&(m>>(2*shift)) != 0 {
			return true
		}
	}
	return false
}

// ToDisplayText renders the board top row first. X moved first.
func (p Position) ToDisplayText() string {
	var sb strings.Builder
	first, second := p.current, p.current^p.mask
	if p.moves%2 == 1 {
		first, second = second, first
	}
	for row := Height - 1; row >= 0; row-- {
		sb.WriteString("|")
		for col := 0; col < Width; col++ {
			bit := uint64(1) << (row + col*colBits)
			switch {
			case first&bit != 0:
				sb.WriteString(" X")
			case second&bit != 0:
				sb.WriteString(" O")
			default:
				sb.WriteString(" .")
			}
		}
		sb.WriteString(" |\n")
	}
	sb.WriteString("+")
	sb.WriteString(strings.Repeat("--", Width))
	sb.WriteString("-+\n ")
	for col := 1; col <= Width; col++ {
		sb.WriteString(" ")
		sb.WriteByte(byte('0' + col))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (p Position) String() string {
	return p.ToDisplayText()
}
