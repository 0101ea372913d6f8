package object

import (
	"github.com/loxlang/loxvm/internal/table"
	"github.com/loxlang/loxvm/internal/value"
)

// Strings is the VM-wide string table: every interned string is
// reachable here by content, giving the "same bytes -> same pointer"
// guarantee that lets Value equality compare strings by reference
// instead of content.
//
// Construction has two entry points:
//
//   CopyString  — the caller keeps its string; since Go strings are
//                 immutable, a new *String shares s rather than copying it.
//   TakeString  — the caller is handing over ownership of an already-built
//                 Go string; if an equal string is already interned we
//                 simply discard the new one and return the existing
//                 object (Go's GC reclaims the discarded backing array —
//                 there is no separate free() step to call).
//
// Both compute the hash once, at construction, and cache it on the
// *String header. The stored table value is unused (every entry is a
// presence marker); the table's purpose here is identity resolution by
// hash+bytes via FindString, not a key->value mapping.
type Strings struct {
	table *table.Table
}

// NewStrings returns an empty string table.
func NewStrings() *Strings {
	return &Strings{table: table.New()}
}

// HashString exposes the interning table's FNV-1a hash so callers that
// need to probe the table themselves (internal/vm's allocation path)
// don't have to duplicate the algorithm.
func HashString(s string) uint32 { return fnv1aHash(s) }

// Find reports whether a string with identical bytes is already interned,
// without allocating. Used by internal/vm to decide whether a new *String
// needs to be constructed (and therefore whether a GC watermark check
// applies) before touching the table.
func (st *Strings) Find(s string, hash uint32) (*String, bool) {
	found, ok := st.table.FindString(s, hash)
	if !ok {
		return nil, false
	}
	return found.(*String), true
}

// Insert adds an already-constructed *String to the table. The caller is
// responsible for having confirmed via Find that no equal string was
// already interned.
func (st *Strings) Insert(s *String) {
	st.table.Set(s, value.True)
}

// CopyString interns s, allocating a new *String only if no interned
// string with identical bytes already exists. This path does not run
// through the VM's GC accounting — it is meant for strings materialized
// outside a running VM (constant-pool literals built by the external
// compiler, or tests), not for values allocated while the interpreter is
// executing. internal/vm has its own interning path (internString) that
// wraps Find/Insert with its allocation watermark check.
func (st *Strings) CopyString(s string) *String {
	hash := fnv1aHash(s)
	if found, ok := st.Find(s, hash); ok {
		return found
	}
	obj := &String{Chars: s, Hash: hash}
	st.Insert(obj)
	return obj
}

// TakeString interns s, which the caller is relinquishing ownership of.
// If an equal interned string already exists, the caller's copy is
// dropped in favor of the existing identity; otherwise the new String
// object adopts s directly without copying it again.
func (st *Strings) TakeString(s string) *String {
	return st.CopyString(s)
}

// Remove drops a string from the table. Used by the GC sweep to prune
// interned strings that turned out to have no other root (see the weak
// string-table resolution in DESIGN.md) so orphan strings are collectible
// instead of living forever just for having once been interned.
func (st *Strings) Remove(s *String) {
	st.table.Delete(s)
}

// Each calls fn for every currently interned string. Used by the GC's
// sweep phase to prune unmarked entries.
func (st *Strings) Each(fn func(s *String)) {
	st.table.Each(func(key table.Key, _ value.Value) {
		fn(key.(*String))
	})
}
