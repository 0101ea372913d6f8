package table

import (
	"testing"

	"github.com/loxlang/loxvm/internal/value"
)

// strKey is a minimal Key for table tests, standing in for
// internal/object's interned String without importing it.
type strKey struct {
	s string
	h uint32
}

func (k strKey) Bytes() string  { return k.s }
func (k strKey) HashCode() uint32 { return k.h }

func fnv1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func key(s string) strKey { return strKey{s: s, h: fnv1a(s)} }

func TestSetGetBasic(t *testing.T) {
	tb := New()
	isNew := tb.Set(key("a"), value.NumberVal(1))
	if !isNew {
		t.Fatal("first insert should report new")
	}
	if isNew := tb.Set(key("a"), value.NumberVal(2)); isNew {
		t.Fatal("overwrite should report not-new")
	}
	v, ok := tb.Get(key("a"))
	if !ok || v.AsNumber() != 2 {
		t.Fatalf("Get after overwrite = %v, %v", v, ok)
	}
}

func TestDeletePreservesProbeChain(t *testing.T) {
	tb := New()
	// Force a handful of keys into the same small table so at least two
	// collide and must probe past a deleted tombstone.
	keys := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for i, k := range keys {
		tb.Set(key(k), value.NumberVal(float64(i)))
	}
	tb.Delete(key("bravo"))
	for i, k := range keys {
		if k == "bravo" {
			if _, ok := tb.Get(key(k)); ok {
				t.Fatal("deleted key should not be found")
			}
			continue
		}
		v, ok := tb.Get(key(k))
		if !ok || v.AsNumber() != float64(i) {
			t.Fatalf("Get(%q) after unrelated delete = %v, %v", k, v, ok)
		}
	}
}

func TestFindStringMatchesHashAndBytes(t *testing.T) {
	tb := New()
	k := key("hello")
	tb.Set(k, value.NumberVal(1))
	found, ok := tb.FindString("hello", k.h)
	if !ok || found.Bytes() != "hello" {
		t.Fatalf("FindString did not resolve identity: %v %v", found, ok)
	}
	if _, ok := tb.FindString("hello", k.h+1); ok {
		t.Fatal("FindString must not match on bytes alone without the hash")
	}
}

func TestGrowthRehashesEverything(t *testing.T) {
	tb := New()
	const n = 200
	for i := 0; i < n; i++ {
		tb.Set(key(string(rune('a'+i%26))+string(rune(i))), value.NumberVal(float64(i)))
	}
	if tb.Count() != n {
		t.Fatalf("Count() = %d, want %d", tb.Count(), n)
	}
}
