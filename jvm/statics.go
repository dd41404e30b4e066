package jvm

import (
	"fmt"
	"sort"
)

// StaticTable is the process-wide `(class_name, field_name) -> (primary,
// secondary)` map from spec.md §3/C9. It is owned by the Interp
// (not a package-level global — spec.md §9's "shared mutable
// state... as fields of an interpreter context value").
type StaticTable struct {
	fields map[fieldKey]fieldPair
}

func newStaticTable() *StaticTable {
	return &StaticTable{fields: make(map[fieldKey]fieldPair)}
}

func (t *StaticTable) get(classNameID, fieldNameID int) fieldPair {
	return t.fields[fieldKey{classNameID, fieldNameID}]
}

func (t *StaticTable) set(classNameID, fieldNameID int, p fieldPair) {
	t.fields[fieldKey{classNameID, fieldNameID}] = p
}

// seedDefaults populates every declared static field of class with its
// descriptor's zero value before <clinit> runs (SPEC_FULL.md C9
// supplement, grounded on original_source/src/java_class/default.rs).
func (t *StaticTable) seedDefaults(classNameID int, class *ParsedClass, pool *StringPool) {
	for _, f := range class.Fields {
		if !f.IsStatic {
			continue
		}
		desc, _ := pool.Lookup(f.DescID)
		key := fieldKey{classNameID, f.NameID}
		if _, exists := t.fields[key]; exists {
			continue
		}
		t.fields[key] = defaultFieldPair(desc)
	}
}

// ForDisplay renders every known static field as "Class.field = value",
// sorted for stable output, for the debugger UI's optional statics panel
// (SPEC_FULL.md's config.Debugger.ShowStaticFields).
func (t *StaticTable) ForDisplay(pool *StringPool) []string {
	out := make([]string, 0, len(t.fields))
	for key, pair := range t.fields {
		className, _ := pool.Lookup(key.ClassNameID)
		fieldName, _ := pool.Lookup(key.FieldNameID)
		out = append(out, fmt.Sprintf("%s.%s = %s", className, fieldName, pair.Primary.describe()))
	}
	sort.Strings(out)
	return out
}

// defaultFieldPair returns the zero-value pair for a field descriptor:
// int -> 0, long -> (0,0), boolean -> false (spec.md §9 flags the source's
// `true` default as a bug; this implementation follows the platform
// standard instead), everything else -> Null/Null (unimplemented per
// spec.md §4.7's "others unimplemented").
func defaultFieldPair(desc string) fieldPair {
	switch desc {
	case "J":
		return fieldPair{Primary: longItem(0), Secondary: longItem(0)}
	case "I":
		return fieldPair{Primary: intItem(0)}
	case "Z":
		return fieldPair{Primary: boolItem(false)}
	default:
		return fieldPair{Primary: nullItem()}
	}
}
