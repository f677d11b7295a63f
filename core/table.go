package brc

import (
	"bytes"
	"fmt"
	"iter"
	"math/bits"
)

// Key stores a station name inline, it is never reallocated.
type Key struct {
	name [MAX_KEY_SIZE]byte
	len  uint8
}

func newKey(name []byte) Key {
	var k Key
	k.len = uint8(copy(k.name[:], name))
	return k
}

func (k *Key) Bytes() []byte {
	return k.name[:k.len]
}

func (k *Key) String() string {
	return string(k.name[:k.len])
}

type Stat struct {
	Min   float64
	Max   float64
	Sum   float64
	Count int64
	// mean = Sum/Count
}

func (s *Stat) add(temp float64) {
	s.Sum += temp
	s.Count++
	s.Min = min(s.Min, temp)
	s.Max = max(s.Max, temp)
}

func (s *Stat) merge(o *Stat) {
	s.Sum += o.Sum
	s.Count += o.Count
	s.Min = min(s.Min, o.Min)
	s.Max = max(s.Max, o.Max)
}

func (s *Stat) Mean() float64 {
	return s.Sum / float64(s.Count)
}

type Entry struct {
	Key  Key
	Hash uint64
	Stat Stat
}

// Table maps station names to their Stat. The slot of a name is hash & (slots-1),
// names colliding on a slot are chained in that slot and told apart by their bytes.
// The slot count is fixed at creation, a Table is never resized.
type Table struct {
	slots    [][]Entry
	mask     uint64
	occupied []int // slots holding at least one entry, in first use order
	size     int
}

func NewTable(numSlots int) (*Table, error) {
	if numSlots < 1 || bits.OnesCount(uint(numSlots)) != 1 {
		return nil, fmt.Errorf("%w: slot count %d is not a power of two", ErrInvalidOptions, numSlots)
	}
	return &Table{
		slots:    make([][]Entry, numSlots),
		mask:     uint64(numSlots - 1),
		occupied: make([]int, 0, 1024),
	}, nil
}

// InsertOrUpdate adds one reading of station name to the table.
func (t *Table) InsertOrUpdate(name []byte, hash uint64, temp float64) {
	slot := hash & t.mask
	chain := t.slots[slot]
	for i := range chain {
		if chain[i].Hash == hash && bytes.Equal(chain[i].Key.Bytes(), name) {
			chain[i].Stat.add(temp)
			return
		}
	}
	t.push(slot, Entry{
		Key:  newKey(name),
		Hash: hash,
		Stat: Stat{Min: temp, Max: temp, Sum: temp, Count: 1},
	})
}

// mergeEntry folds a complete entry of another table into t.
func (t *Table) mergeEntry(e *Entry) {
	slot := e.Hash & t.mask
	chain := t.slots[slot]
	for i := range chain {
		if chain[i].Hash == e.Hash && bytes.Equal(chain[i].Key.Bytes(), e.Key.Bytes()) {
			chain[i].Stat.merge(&e.Stat)
			return
		}
	}
	t.push(slot, *e)
}

func (t *Table) push(slot uint64, e Entry) {
	if len(t.slots[slot]) == 0 {
		t.occupied = append(t.occupied, int(slot))
		t.slots[slot] = make([]Entry, 0, 2)
	}
	t.slots[slot] = append(t.slots[slot], e)
	t.size++
}

// Len is the number of distinct names.
func (t *Table) Len() int {
	return t.size
}

func (t *Table) NumSlots() int {
	return len(t.slots)
}

// Records is the number of readings folded into the table.
func (t *Table) Records() int64 {
	var n int64
	for e := range t.All() {
		n += e.Stat.Count
	}
	return n
}

// Collisions counts the entries sharing their slot with another name.
func (t *Table) Collisions() int {
	count := 0
	for _, slot := range t.occupied {
		if l := len(t.slots[slot]); l > 1 {
			count += l
		}
	}
	return count
}

func (t *Table) MaxChain() int {
	m := 0
	for _, slot := range t.occupied {
		m = max(m, len(t.slots[slot]))
	}
	return m
}

// All iterates entries slot by slot, visiting only occupied slots.
func (t *Table) All() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, slot := range t.occupied {
			chain := t.slots[slot]
			for i := range chain {
				if !yield(&chain[i]) {
					return
				}
			}
		}
	}
}
