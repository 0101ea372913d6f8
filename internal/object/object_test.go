package object

import (
	"testing"

	"github.com/loxlang/loxvm/internal/table"
	"github.com/loxlang/loxvm/internal/value"
)

func TestInterningIdentity(t *testing.T) {
	st := NewStrings()
	a := st.CopyString("hello")
	b := st.CopyString("hello")
	if a != b {
		t.Fatal("two CopyString calls with identical bytes must return the same object")
	}
	c := st.TakeString("hello")
	if c != a {
		t.Fatal("TakeString must resolve to the existing interned identity")
	}
	d := st.CopyString("world")
	if d == a {
		t.Fatal("distinct content must not collide")
	}
}

func TestUpvalueOpenClose(t *testing.T) {
	slot := value.NumberVal(7)
	uv := NewOpenUpvalue(&slot)
	if !uv.IsOpen() {
		t.Fatal("freshly captured upvalue should be open")
	}
	uv.Close()
	if uv.IsOpen() {
		t.Fatal("upvalue should be closed after Close()")
	}
	if uv.Closed.AsNumber() != 7 {
		t.Fatalf("closed value = %v, want 7", uv.Closed)
	}
}

// TestClassInheritanceSnapshot mirrors OP_INHERIT: copying a superclass's
// method table into a subclass is a snapshot, not a live link — later
// changes to the superclass must not be visible through the subclass.
func TestClassInheritanceSnapshot(t *testing.T) {
	st := NewStrings()
	base := NewClass(st.CopyString("A"))
	sub := NewClass(st.CopyString("B"))

	mName := st.CopyString("m")
	baseMethod := value.ObjVal(&Closure{Function: &Function{Name: mName}})
	base.Methods.Set(mName, baseMethod)

	table.AddAll(base.Methods, sub.Methods)

	if _, ok := sub.Methods.Get(mName); !ok {
		t.Fatal("subclass should have inherited the method at snapshot time")
	}

	// Mutate the superclass after inheritance: the subclass copy must be
	// unaffected (single-inheritance snapshot semantics).
	nName := st.CopyString("n")
	base.Methods.Set(nName, value.ObjVal(&Closure{Function: &Function{Name: nName}}))
	if _, ok := sub.Methods.Get(nName); ok {
		t.Fatal("method added to superclass after inheritance must not appear on subclass")
	}
}

func TestPrintFormats(t *testing.T) {
	st := NewStrings()
	fn := &Function{Name: st.CopyString("add")}
	if got := fn.String(); got != "<fn add>" {
		t.Errorf("Function.String() = %q", got)
	}
	script := &Function{}
	if got := script.String(); got != "<script>" {
		t.Errorf("script Function.String() = %q", got)
	}
	class := NewClass(st.CopyString("Greeter"))
	if got := class.String(); got != "Greeter" {
		t.Errorf("Class.String() = %q", got)
	}
	inst := NewInstance(class)
	if got := inst.String(); got != "Greeter instance" {
		t.Errorf("Instance.String() = %q", got)
	}
	nat := &Native{Name: "clock"}
	if got := nat.String(); got != "<native fn>" {
		t.Errorf("Native.String() = %q", got)
	}
}
