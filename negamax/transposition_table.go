package negamax

import (
	"math"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/board"
)

const entrySize = 8

const (
	// DefaultTableSizePower gives 2^23 slots, 64 MB.
	DefaultTableSizePower = 23
	minTableSizePower     = 17
	maxTableSizePower     = 28
)

const valueMask = (1 << 8) - 1

// A slot packs the part of the key not implied by its index above a one
// byte value. Keys are below 2^49, so with at least 2^17 slots the whole
// key is recoverable and there are no false hits. A zero value byte marks
// an empty slot.
type slot uint64

func makeSlot(key uint64, sizePowerOf2 int, value uint8) slot {
	return slot((key>>sizePowerOf2)<<8 | uint64(value))
}

func (s slot) value() uint8 {
	return uint8(s & valueMask)
}

func (s slot) valid() bool {
	return s.value() != 0
}

// fullKey rebuilds the key stored in this slot, given the slot index.
func (s slot) fullKey(idx uint64, sizePowerOf2 int) uint64 {
	return uint64(s)>>8<<sizePowerOf2 | idx
}

// TranspositionTable caches one score bound per position. Every slot is
// read and written with a single atomic operation, so any number of
// searches may share one table. Stores always replace.
type TranspositionTable struct {
	table        []atomic.Uint64
	created      atomic.Uint64
	lookups      atomic.Uint64
	hits         atomic.Uint64
	sizePowerOf2 int
	sizeMask     uint64
	// "type 2" collisions: another position occupies the slot. Type 1
	// collisions cannot happen since the full key is kept.
	t2collisions atomic.Uint64
}

// GlobalTranspositionTable is shared by the commands, which size it once
// from configuration.
var GlobalTranspositionTable = &TranspositionTable{}

// NewTranspositionTable allocates 2^sizePowerOf2 slots. The power is
// clamped to [17, 28].
func NewTranspositionTable(sizePowerOf2 int) *TranspositionTable {
	t := &TranspositionTable{}
	t.allocate(sizePowerOf2)
	return t
}

func (t *TranspositionTable) allocate(sizePowerOf2 int) bool {
	sizePowerOf2 = max(minTableSizePower, min(maxTableSizePower, sizePowerOf2))
	numElems := 1 << sizePowerOf2
	t.sizePowerOf2 = sizePowerOf2
	t.sizeMask = uint64(numElems - 1)
	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		t.Clear()
	} else {
		t.table = make([]atomic.Uint64, numElems)
	}
	t.resetCounters()
	return reset
}

// Reset sizes the table to a fraction of the system memory and empties it.
// It must not run while searches use the table.
func (t *TranspositionTable) Reset(fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	// biggest power of 2 lower than desired
	sizePowerOf2 := minTableSizePower
	if desiredNElems > 1 {
		sizePowerOf2 = int(math.Log2(desiredNElems))
	}
	reset := t.allocate(sizePowerOf2)

	log.Info().Int("num-elems", len(t.table)).
		Float64("desired-num-elems", desiredNElems).
		Int("estimated-total-memory-bytes", len(t.table)*entrySize).
		Uint64("total-system-memory-bytes", totalMem).
		Bool("reset", reset).
		Msg("transposition-table-size")
}

// Clear empties every slot without reallocating.
func (t *TranspositionTable) Clear() {
	for i := range t.table {
		t.table[i].Store(0)
	}
	t.resetCounters()
}

func (t *TranspositionTable) resetCounters() {
	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.t2collisions.Store(0)
}

// Get returns the value stored for key. ok is false when the slot is
// empty or holds another position.
func (t *TranspositionTable) Get(key uint64) (value uint8, ok bool) {
	t.lookups.Add(1)
	idx := key & t.sizeMask
	s := slot(t.table[idx].Load())
	if !s.valid() {
		return 0, false
	}
	if s.fullKey(idx, t.sizePowerOf2) != key {
		t.t2collisions.Add(1)
		return 0, false
	}
	t.hits.Add(1)
	return s.value(), true
}

// Put stores value for key, replacing whatever was in the slot. value must
// not be zero.
func (t *TranspositionTable) Put(key uint64, value uint8) {
	idx := key & t.sizeMask
	t.table[idx].Store(uint64(makeSlot(key, t.sizePowerOf2, value)))
	t.created.Add(1)
}

// Size returns the number of slots.
func (t *TranspositionTable) Size() int {
	return len(t.table)
}

// TableStats is a snapshot of the table counters.
type TableStats struct {
	Created      uint64
	Lookups      uint64
	Hits         uint64
	T2Collisions uint64
}

func (t *TranspositionTable) Stats() TableStats {
	return TableStats{
		Created:      t.created.Load(),
		Lookups:      t.lookups.Load(),
		Hits:         t.hits.Load(),
		T2Collisions: t.t2collisions.Load(),
	}
}

// Bounds are stored in one byte. Upper bounds take 1..37 and lower bounds
// 38..74; zero stays free to mark empty slots.
const lowerBoundOffset = board.MaxScore - board.MinScore + 1

func encodeUpper(v int) uint8 {
	return uint8(v - board.MinScore + 1)
}

func encodeLower(v int) uint8 {
	return uint8(v + board.MaxScore - 2*board.MinScore + 2)
}

// decodeBound returns the bound held in a stored value and whether it is
// a lower bound.
func decodeBound(val uint8) (v int, lower bool) {
	if int(val) > lowerBoundOffset {
		return int(val) + 2*board.MinScore - board.MaxScore - 2, true
	}
	return int(val) + board.MinScore - 1, false
}
