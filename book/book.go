// Package book stores exact scores of shallow positions so searches near
// the start of the game can stop early.
//
// A book file is little-endian:
//
//	magic     [4]byte  "C4BK"
//	version   uint8    1
//	width     uint8    7
//	height    uint8    6
//	maxDepth  uint8
//	count     uint32
//	checksum  uint64   xxhash64 of the record section
//	records   count x (key uint64, score int8), keys strictly ascending
//
// Keys are canonical position keys, so a position and its mirror image
// share one record.
package book

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/cespare/xxhash"

	"github.com/domino14/connect4/board"
)

const (
	Version    = 1
	headerSize = 20
	recordSize = 9

	maxBookScore = (board.BoardSize + 1) / 2
)

var magic = [4]byte{'C', '4', 'B', 'K'}

var (
	ErrBadMagic   = errors.New("not an opening book")
	ErrVersion    = errors.New("unsupported opening book version")
	ErrDimensions = errors.New("opening book is for another board size")
	ErrTruncated  = errors.New("opening book is truncated")
	ErrChecksum   = errors.New("opening book checksum mismatch")
	ErrUnsorted   = errors.New("opening book keys are not strictly ascending")
	ErrScoreRange = errors.New("opening book score out of range")
)

// Record is one solved position.
type Record struct {
	Key   uint64
	Score int8
}

// Book is an immutable sorted table of records. It is safe for concurrent
// use.
type Book struct {
	maxDepth int
	keys     []uint64
	scores   []int8
}

// New builds a book from records in any order. Duplicate keys are an
// error.
func New(maxDepth int, records []Record) (*Book, error) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	b := &Book{
		maxDepth: maxDepth,
		keys:     make([]uint64, len(sorted)),
		scores:   make([]int8, len(sorted)),
	}
	for i, r := range sorted {
		b.keys[i] = r.Key
		b.scores[i] = r.Score
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) validate() error {
	if b.maxDepth < 0 || b.maxDepth > board.BoardSize {
		return fmt.Errorf("max depth %d: %w", b.maxDepth, ErrDimensions)
	}
	for i := range b.keys {
		if i > 0 && b.keys[i] <= b.keys[i-1] {
			return fmt.Errorf("record %d: %w", i, ErrUnsorted)
		}
		if s := int(b.scores[i]); s < -maxBookScore || s > maxBookScore {
			return fmt.Errorf("record %d score %d: %w", i, s, ErrScoreRange)
		}
	}
	return nil
}

// MaxDepth is the deepest ply count the book covers.
func (b *Book) MaxDepth() int {
	return b.maxDepth
}

// Len returns the number of records.
func (b *Book) Len() int {
	return len(b.keys)
}

// Lookup returns the exact score of pos for the player to move, if the
// book holds it. Positions deeper than MaxDepth always miss.
func (b *Book) Lookup(pos board.Position) (int, bool) {
	if b == nil || pos.NumMoves() > b.maxDepth {
		return 0, false
	}
	idx, found := slices.BinarySearch(b.keys, pos.CanonicalKey())
	if !found {
		return 0, false
	}
	return int(b.scores[idx]), true
}

// Records returns a copy of the records in key order.
func (b *Book) Records() []Record {
	rs := make([]Record, len(b.keys))
	for i := range b.keys {
		rs[i] = Record{Key: b.keys[i], Score: b.scores[i]}
	}
	return rs
}

func (b *Book) recordBytes() []byte {
	buf := make([]byte, recordSize*len(b.keys))
	for i := range b.keys {
		off := i * recordSize
		binary.LittleEndian.PutUint64(buf[off:], b.keys[i])
		buf[off+8] = byte(b.scores[i])
	}
	return buf
}

// WriteTo serializes the book.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	records := b.recordBytes()
	hdr := make([]byte, headerSize)
	copy(hdr, magic[:])
	hdr[4] = Version
	hdr[5] = board.Width
	hdr[6] = board.Height
	hdr[7] = uint8(b.maxDepth)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(b.keys)))
	binary.LittleEndian.PutUint64(hdr[12:], xxhash.Sum64(records))

	n, err := w.Write(hdr)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(records)
	return int64(n + m), err
}

// Read loads a book from r.
func Read(r io.Reader) (*Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a serialized book, rejecting anything malformed.
func Parse(data []byte) (*Book, error) {
	if len(data) < headerSize {
		if len(data) >= len(magic) && !bytes.Equal(data[:len(magic)], magic[:]) {
			return nil, ErrBadMagic
		}
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, ErrBadMagic
	}
	if data[4] != Version {
		return nil, fmt.Errorf("version %d: %w", data[4], ErrVersion)
	}
	if data[5] != board.Width || data[6] != board.Height {
		return nil, fmt.Errorf("%dx%d: %w", data[5], data[6], ErrDimensions)
	}
	maxDepth := int(data[7])
	count := int(binary.LittleEndian.Uint32(data[8:]))
	checksum := binary.LittleEndian.Uint64(data[12:])

	records := data[headerSize:]
	if len(records) != count*recordSize {
		return nil, fmt.Errorf("%d record bytes for %d records: %w", len(records), count, ErrTruncated)
	}
	if xxhash.Sum64(records) != checksum {
		return nil, ErrChecksum
	}
	b := &Book{
		maxDepth: maxDepth,
		keys:     make([]uint64, count),
		scores:   make([]int8, count),
	}
	for i := 0; i < count; i++ {
		off := i * recordSize
		b.keys[i] = binary.LittleEndian.Uint64(records[off:])
		b.scores[i] = int8(records[off+8])
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}
