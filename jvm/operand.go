package jvm

import "fmt"

// ItemKind tags the variant of an Item (spec.md §3).
type ItemKind int

const (
	KindNull ItemKind = iota
	KindInt
	KindLong
	KindFloat
	KindBoolean
	KindString
	KindClassref
	KindFieldref
	KindObjectref
	KindArrayref
)

// Item is an operand stack slot / local slot / static-field slot value.
// A Long occupies two consecutive slots on the stack (high half pushed
// first, then low half) and two consecutive locals (low-then-high, per
// spec.md §3's locals convention).
type Item struct {
	Kind ItemKind

	Int     int32
	Long64  int64 // full 64-bit value, used only when an Item represents one array element (see Arrayref)
	Float   float32
	Bool    bool
	StringID int // interned string id (KindString) or field name (KindFieldref)
	ClassNameID int // KindClassref

	Obj *Objectref
	Arr *Arrayref
}

func nullItem() Item { return Item{Kind: KindNull} }
func intItem(v int32) Item { return Item{Kind: KindInt, Int: v} }
func longItem(v int32) Item { return Item{Kind: KindLong, Int: v} }
func floatItem(v float32) Item { return Item{Kind: KindFloat, Float: v} }
func boolItem(v bool) Item { return Item{Kind: KindBoolean, Bool: v} }
func stringItem(id int) Item { return Item{Kind: KindString, StringID: id} }
func classrefItem(id int) Item { return Item{Kind: KindClassref, ClassNameID: id} }

// describe renders an Item as short debug text, for the debugger UI's
// locals/stack panels.
func (it Item) describe() string {
	switch it.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return fmt.Sprintf("int %d", it.Int)
	case KindLong:
		return fmt.Sprintf("long-slot %d", it.Int)
	case KindFloat:
		return fmt.Sprintf("float %v", it.Float)
	case KindBoolean:
		return fmt.Sprintf("bool %t", it.Bool)
	case KindString:
		return fmt.Sprintf("string#%d", it.StringID)
	case KindClassref:
		return fmt.Sprintf("class#%d", it.ClassNameID)
	case KindFieldref:
		return fmt.Sprintf("field#%d", it.StringID)
	case KindObjectref:
		return "objectref"
	case KindArrayref:
		if it.Arr != nil {
			return fmt.Sprintf("arrayref len=%d", len(it.Arr.Elems))
		}
		return "arrayref"
	default:
		return "?"
	}
}

// Objectref is a by-value reference carrying a class name id (not a
// pointer) and the object's field map, keyed the same way the static-field
// table is (spec.md §9: "equality is by embedded id, not identity").
type Objectref struct {
	ClassNameID int
	Fields      map[fieldKey]fieldPair
}

// Arrayref backs newarray/anewarray/multianewarray (SPEC_FULL.md C7
// supplement). Element class identity is not tracked for reference-kind
// arrays, matching the spec's no-dynamic-dispatch Non-goal.
type Arrayref struct {
	ElemKind ItemKind // KindInt, KindLong, or KindObjectref (used generically for refs)
	Elems    []Item
}

// fieldKey indexes both the static-field table (C9) and an Objectref's
// field map uniformly.
type fieldKey struct {
	ClassNameID int
	FieldNameID int
}

// fieldPair is the "(primary, secondary)" slot pair from spec.md §3/§9.
// secondary is Null except for Long, where it holds the low half.
type fieldPair struct {
	Primary   Item
	Secondary Item
}

// OperandStack is a per-frame LIFO of Items (C7).
type OperandStack struct {
	items []Item
}

func newOperandStack() *OperandStack { return &OperandStack{} }

func (s *OperandStack) push(it Item) { s.items = append(s.items, it) }

func (s *OperandStack) pop() (Item, error) {
	if len(s.items) == 0 {
		return Item{}, newFatal(errStackUnderflow, "pop from empty operand stack")
	}
	it := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return it, nil
}

func (s *OperandStack) peek() (Item, error) {
	if len(s.items) == 0 {
		return Item{}, newFatal(errStackUnderflow, "peek on empty operand stack")
	}
	return s.items[len(s.items)-1], nil
}

func (s *OperandStack) depth() int { return len(s.items) }

// popInt pops a single Int item, erroring on a variant mismatch.
func (s *OperandStack) popInt() (int32, error) {
	it, err := s.pop()
	if err != nil {
		return 0, err
	}
	if it.Kind != KindInt {
		return 0, newFatal(errType, fmt.Sprintf("expected Int operand, got kind %d", it.Kind))
	}
	return it.Int, nil
}

// popLong pops the two-slot long representation (low then high, since high
// was pushed first and is therefore beneath low) and recombines it as a
// signed 64-bit value (spec.md §4.5/§8's extract_long_values property).
func (s *OperandStack) popLong() (int64, error) {
	lo, err := s.pop()
	if err != nil {
		return 0, err
	}
	hi, err := s.pop()
	if err != nil {
		return 0, err
	}
	if hi.Kind != KindLong || lo.Kind != KindLong {
		return 0, newFatal(errType, "expected two Long slots")
	}
	return int64(uint32(hi.Int))<<32 | int64(uint32(lo.Int)), nil
}

// pushLong splits a 64-bit value into high/low Long items and pushes high
// first (so it ends up beneath low, per spec.md §3's invariant).
func (s *OperandStack) pushLong(v int64) {
	hi := int32(uint64(v) >> 32)
	lo := int32(uint64(v))
	s.push(longItem(hi))
	s.push(longItem(lo))
}

// iadd/isub/imul/idiv/irem implement C7's int arithmetic: pop two Int,
// operate, push one.
func (s *OperandStack) intBinOp(op func(a, b int32) (int32, error)) error {
	b, err := s.popInt()
	if err != nil {
		return err
	}
	a, err := s.popInt()
	if err != nil {
		return err
	}
	r, err := op(a, b)
	if err != nil {
		return err
	}
	s.push(intItem(r))
	return nil
}

// longBinOp implements C7's long arithmetic (pop four slots, recombine,
// operate, re-split, push).
func (s *OperandStack) longBinOp(op func(a, b int64) (int64, error)) error {
	b, err := s.popLong()
	if err != nil {
		return err
	}
	a, err := s.popLong()
	if err != nil {
		return err
	}
	r, err := op(a, b)
	if err != nil {
		return err
	}
	s.pushLong(r)
	return nil
}

func iadd(a, b int32) (int32, error) { return a + b, nil }
func isub(a, b int32) (int32, error) { return a - b, nil }
func imul(a, b int32) (int32, error) { return a * b, nil }
func idiv(a, b int32) (int32, error) {
	if b == 0 {
		return 0, newFatal(errArithmetic, "division by zero")
	}
	return a / b, nil
}
func irem(a, b int32) (int32, error) {
	if b == 0 {
		return 0, newFatal(errArithmetic, "remainder by zero")
	}
	return a % b, nil
}

func ladd(a, b int64) (int64, error) { return a + b, nil }
func lsub(a, b int64) (int64, error) { return a - b, nil }
func lmul(a, b int64) (int64, error) { return a * b, nil }
func ldiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, newFatal(errArithmetic, "division by zero")
	}
	return a / b, nil
}
func lrem(a, b int64) (int64, error) {
	if b == 0 {
		return 0, newFatal(errArithmetic, "remainder by zero")
	}
	return a % b, nil
}

// lcmp pushes -1 | 0 | 1 (spec.md §4.5).
func (s *OperandStack) lcmp() error {
	b, err := s.popLong()
	if err != nil {
		return err
	}
	a, err := s.popLong()
	if err != nil {
		return err
	}
	switch {
	case a < b:
		s.push(intItem(-1))
	case a > b:
		s.push(intItem(1))
	default:
		s.push(intItem(0))
	}
	return nil
}

// dup duplicates the top item; two items if the top is a Long's low half
// (SPEC_FULL.md C5 supplement — a Long's high half is always the slot
// directly beneath, per spec.md §3's invariant).
func (s *OperandStack) dup() error {
	if len(s.items) == 0 {
		return newFatal(errStackUnderflow, "dup on empty operand stack")
	}
	top := s.items[len(s.items)-1]
	if top.Kind == KindLong && len(s.items) >= 2 && s.items[len(s.items)-2].Kind == KindLong {
		hi := s.items[len(s.items)-2]
		s.push(hi)
		s.push(top)
		return nil
	}
	s.push(top)
	return nil
}
