package jvm

import (
	"fmt"
	"io"
	"strconv"
)

// BuiltInCode names a host-implemented method body (spec.md §4.9),
// grounded on original_source/src/java_class/builtin.rs's BuitlInCodeType.
type BuiltInCode int

const (
	CodePrintln BuiltInCode = iota
	CodeJavaLangObjectInit
	CodeJavaLangSystemInit
	CodeJavaLangObjectToString
)

// BuiltInClass is a host-provided `method_name_id -> code` table
// (spec.md §3/§4.9).
type BuiltInClass struct {
	NameID  int
	Methods map[int]builtinMethod
}

type builtinMethod struct {
	Code BuiltInCode
	Desc string
}


// execBuiltin runs a built-in method's body against the frame it was just
// given (built populated exactly like any other invoke, via
// buildCalleeLocals). It returns an optional return value to push onto the
// caller's operand stack. Built-in methods never fail (spec.md §7).
func execBuiltin(code BuiltInCode, frame *Frame, pool *StringPool, out io.Writer) (*Item, error) {
	switch code {
	case CodeJavaLangObjectInit, CodeJavaLangSystemInit:
		// Side-effect-free (spec.md §4.9).
		return nil, nil

	case CodePrintln:
		// Local 0 is the receiver (the PrintStream); local 1 (and, for
		// longs, local 2) is the argument to print.
		arg, err := frame.getLocal(1)
		if err != nil {
			return nil, err
		}
		printItem(out, arg, frame, pool)
		return nil, nil

	case CodeJavaLangObjectToString:
		// Local 0 is the receiver; local 1 is the int to render.
		arg, err := frame.getLocal(1)
		if err != nil {
			return nil, err
		}
		s := strconv.FormatInt(int64(arg.Int), 10)
		id := pool.Intern(s)
		result := stringItem(id)
		return &result, nil

	default:
		return nil, newFatal(errType, fmt.Sprintf("unknown built-in code %d", code))
	}
}

// printItem renders an operand item the way println does (spec.md §6):
// int -> decimal; long -> 64-bit decimal recombined from the two halves;
// string id -> interned string; objectref -> human-readable dump;
// field-ref -> the field's name (the item carries only the name id; the
// field's value is not looked up).
func printItem(out io.Writer, it Item, frame *Frame, pool *StringPool) {
	switch it.Kind {
	case KindInt:
		fmt.Fprintf(out, "%d\n", it.Int)
	case KindLong:
		// Locals store a long low-then-high by index (spec.md §3); it is
		// local 1 (the low half), so local 2 holds the high half.
		hi, err := frame.getLocal(2)
		if err == nil && hi.Kind == KindLong {
			v := int64(uint32(hi.Int))<<32 | int64(uint32(it.Int))
			fmt.Fprintf(out, "%d\n", v)
			return
		}
		fmt.Fprintf(out, "%d\n", it.Int)
	case KindFloat:
		fmt.Fprintf(out, "%v\n", it.Float)
	case KindBoolean:
		fmt.Fprintf(out, "%t\n", it.Bool)
	case KindString:
		s, _ := pool.Lookup(it.StringID)
		fmt.Fprintf(out, "%s\n", s)
	case KindClassref:
		name, _ := pool.Lookup(it.ClassNameID)
		fmt.Fprintf(out, "class %s\n", name)
	case KindObjectref:
		fmt.Fprintf(out, "%s\n", dumpObjectref(it.Obj, pool))
	case KindFieldref:
		name, _ := pool.Lookup(it.StringID)
		fmt.Fprintf(out, "%s\n", name)
	default:
		fmt.Fprintf(out, "null\n")
	}
}

func dumpObjectref(obj *Objectref, pool *StringPool) string {
	if obj == nil {
		return "null"
	}
	name, _ := pool.Lookup(obj.ClassNameID)
	return fmt.Sprintf("%s@object", name)
}

// newBuiltinRegistry pre-registers java/io/PrintStream#println,
// java/lang/Object#<init>, java/lang/System#<init>, and
// java/lang/Integer#toString, matching
// original_source/src/java_class/default.rs's setup_class_map
// (SPEC_FULL.md C6 supplement).
func newBuiltinRegistry(pool *StringPool) map[int]*Class {
	classes := make(map[int]*Class)

	register := func(className string, methods map[string]builtinMethod) {
		classNameID := pool.Intern(className)
		methodTable := make(map[int]builtinMethod, len(methods))
		for name, m := range methods {
			methodTable[pool.Intern(name)] = m
		}
		classes[classNameID] = &Class{
			NameID:      classNameID,
			BuiltIn:     &BuiltInClass{NameID: classNameID, Methods: methodTable},
			Initialized: true,
		}
	}

	register("java/io/PrintStream", map[string]builtinMethod{
		"println": {Code: CodePrintln, Desc: "(I)V"},
	})
	register("java/lang/Object", map[string]builtinMethod{
		"<init>": {Code: CodeJavaLangObjectInit, Desc: "()V"},
	})
	register("java/lang/System", map[string]builtinMethod{
		"<init>": {Code: CodeJavaLangSystemInit, Desc: "()V"},
	})
	register("java/lang/Integer", map[string]builtinMethod{
		"toString": {Code: CodeJavaLangObjectToString, Desc: "(I)Ljava/lang/String;"},
	})

	return classes
}
