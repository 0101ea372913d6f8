// Package table implements an open-addressed hash table that maps interned
// strings to Values: globals, a class's method table, and an instance's
// field table are all one of these.
//
// Open addressing, linear probing, tombstones, power-of-two capacity, and
// 0.75 load-factor growth give it an observable contract beyond a plain Go
// map: findString by hash+bytes for interning, and an insert-then-undo
// shape so a failed global-set can be rolled back to "not defined".
package table

import "github.com/loxlang/loxvm/internal/value"

// Key is anything usable as a table key: an interned string. Table does
// not import internal/object to avoid a dependency cycle (object.String
// implements Key); instead it depends only on the byte content and
// precomputed hash every interned string already carries.
type Key interface {
	Bytes() string
	HashCode() uint32
}

const initialCapacity = 8
const maxLoad = 0.75

type entry struct {
	key   Key
	value value.Value
}

// Table is an open-addressed hash map from Key to value.Value.
type Table struct {
	count   int // live entries + tombstones
	entries []entry
}

// New returns an empty Table. The zero Table is also valid and behaves
// identically (first Set grows it from capacity 0).
func New() *Table {
	return &Table{}
}

func isTombstone(e entry) bool {
	return e.key == nil && e.value.IsBool() && e.value.AsBool()
}

func isEmpty(e entry) bool {
	return e.key == nil && !isTombstone(e)
}

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key Key) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.NilValue, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return value.NilValue, false
	}
	return e.value, true
}

// Set inserts or updates key -> val. Returns true if the key was newly
// inserted (not previously present, including not present-as-tombstone).
func (t *Table) Set(key Key, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}
	idx := t.findEntryIndex(t.entries, key)
	e := &t.entries[idx]
	isNew := e.key == nil
	if isNew && !isTombstone(*e) {
		t.count++
	}
	e.key = key
	e.value = val
	return isNew
}

// Delete stores a tombstone at key's slot, preserving probe chains for
// every other key that may have collided past it. Unlike most maps,
// Table never "closes the gap".
func (t *Table) Delete(key Key) {
	if len(t.entries) == 0 {
		return
	}
	idx := t.findEntryIndex(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return
	}
	e.key = nil
	e.value = value.True // tombstone marker: key=nil, value=true
}

// AddAll copies every live entry of src into dst.
func AddAll(src, dst *Table) {
	for _, e := range src.entries {
		if e.key != nil {
			dst.Set(e.key, e.value)
		}
	}
}

// FindString resolves string identity: given raw bytes and their
// precomputed hash, it returns the interned Key object already stored in
// the table with matching hash AND matching byte content, or false if
// none exists. The string table (internal/object) uses this to decide
// between returning an existing interned string and allocating a new one.
func (t *Table) FindString(bytes string, hash uint32) (Key, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := t.entries[idx]
		if e.key == nil {
			if !isTombstone(e) {
				return nil, false
			}
		} else if e.key.HashCode() == hash && e.key.Bytes() == bytes {
			return e.key, true
		}
		idx = (idx + 1) & mask
	}
}

// Count returns the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	live := 0
	for _, e := range t.entries {
		if e.key != nil {
			live++
		}
	}
	return live
}

// Each calls fn for every live entry, in storage order. Order is
// unspecified beyond "stable for a given table until the next grow".
func (t *Table) Each(fn func(key Key, val value.Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

func (t *Table) findEntryIndex(entries []entry, key Key) int {
	mask := uint32(len(entries) - 1)
	idx := key.HashCode() & mask
	var tombstone = -1
	for {
		e := entries[idx]
		if e.key == nil {
			if isTombstone(e) {
				if tombstone == -1 {
					tombstone = int(idx)
				}
			} else {
				if tombstone != -1 {
					return tombstone
				}
				return int(idx)
			}
		} else if e.key == key || (e.key.HashCode() == key.HashCode() && e.key.Bytes() == key.Bytes()) {
			return int(idx)
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) findEntry(entries []entry, key Key) entry {
	return entries[t.findEntryIndex(entries, key)]
}

func (t *Table) grow() {
	newCap := initialCapacity
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)
	liveCount := 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		idx := t.findEntryIndex(newEntries, e.key)
		newEntries[idx] = e
		liveCount++
	}
	t.entries = newEntries
	t.count = liveCount
}
