package jvm

import "fmt"

// Constant pool tags, per the class file format subset this engine
// recognizes (spec.md §3/§4.4).
const (
	tagNull byte = iota
	tagClassRef
	tagFieldRef
	tagMethodRef
	tagNameAndType
	tagUtf8
	tagStringRef
	tagLong
	tagDouble
)

// CPEntry is a tagged constant-pool entry. Only the fields relevant to its
// Tag are meaningful; this mirrors original_source/src/constant.rs's
// per-variant structs collapsed into one Go struct (idiomatic for a closed,
// small tag set — a Go interface-per-tag would buy nothing here since every
// caller already switches on Tag).
type CPEntry struct {
	Tag byte

	// ClassRef
	NameID int

	// FieldRef / MethodRef
	ClassIdx int
	NatIdx   int

	// NameAndType
	NameIdx int
	DescIdx int

	// Utf8
	Utf8ID    int
	Utf8Bytes []byte

	// StringRef
	Utf8Idx int

	// Long / Double
	Hi int32
	Lo int32
}

// ConstantPool is the 1-indexed tagged-union table described in spec.md §3.
// Index 0 is always Null.
type ConstantPool struct {
	entries []CPEntry
	pool    *StringPool
}

func newConstantPool(pool *StringPool) *ConstantPool {
	return &ConstantPool{entries: []CPEntry{{Tag: tagNull}}, pool: pool}
}

func (cp *ConstantPool) at(i int) (CPEntry, error) {
	if i <= 0 || i >= len(cp.entries) {
		return CPEntry{}, newFatal(errResolution, fmt.Sprintf("constant pool index %d out of range", i))
	}
	e := cp.entries[i]
	if e.Tag == tagNull {
		return CPEntry{}, newFatal(errResolution, fmt.Sprintf("dereference of Null constant pool entry %d", i))
	}
	return e, nil
}

// parseConstantPool reads `count-1` logical entries starting at off,
// interning Utf8 bytes into pool as it goes (spec.md §4.4).
func parseConstantPool(buf []byte, off int, count int, pool *StringPool) (*ConstantPool, int, error) {
	cp := newConstantPool(pool)
	var err error
	for i := 1; i < count; i++ {
		var tag uint32
		tag, off, err = readNAsUint(buf, off, 1)
		if err != nil {
			return nil, off, err
		}

		var entry CPEntry
		entry.Tag = byte(tag)

		switch entry.Tag {
		case tagClassRef:
			var nameIdx uint32
			nameIdx, off, err = readNAsUint(buf, off, 2)
			entry.NameID = int(nameIdx)
		case tagFieldRef, tagMethodRef:
			var classIdx, natIdx uint32
			classIdx, off, err = readNAsUint(buf, off, 2)
			if err == nil {
				natIdx, off, err = readNAsUint(buf, off, 2)
			}
			entry.ClassIdx, entry.NatIdx = int(classIdx), int(natIdx)
		case tagNameAndType:
			var nameIdx, descIdx uint32
			nameIdx, off, err = readNAsUint(buf, off, 2)
			if err == nil {
				descIdx, off, err = readNAsUint(buf, off, 2)
			}
			entry.NameIdx, entry.DescIdx = int(nameIdx), int(descIdx)
		case tagUtf8:
			var length uint32
			length, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return nil, off, err
			}
			var raw []byte
			raw, off, err = readNAsBytes(buf, off, int(length))
			if err != nil {
				return nil, off, err
			}
			entry.Utf8Bytes = raw
			entry.Utf8ID = pool.Intern(string(raw))
		case tagStringRef:
			var utf8Idx uint32
			utf8Idx, off, err = readNAsUint(buf, off, 2)
			entry.Utf8Idx = int(utf8Idx)
		case tagLong, tagDouble:
			var hi, lo uint32
			hi, off, err = readNAsUint(buf, off, 4)
			if err == nil {
				lo, off, err = readNAsUint(buf, off, 4)
			}
			entry.Hi, entry.Lo = int32(hi), int32(lo)
		default:
			return nil, off, newFatal(errDecode, fmt.Sprintf("unrecognized constant pool tag %d at entry %d", entry.Tag, i))
		}
		if err != nil {
			return nil, off, err
		}

		cp.entries = append(cp.entries, entry)

		// Long/Double occupy two logical indices; the following slot is a
		// Null sentinel so external 1-based indices stay stable (spec.md §3).
		if entry.Tag == tagLong || entry.Tag == tagDouble {
			cp.entries = append(cp.entries, CPEntry{Tag: tagNull})
			i++
		}
	}

	// A ClassRef's name_index may point forward, so it is swapped for the
	// interned name id only once the whole pool has been read.
	for i := range cp.entries {
		if cp.entries[i].Tag == tagClassRef {
			id, err := cp.utf8ID(cp.entries[i].NameID)
			if err != nil {
				return nil, off, err
			}
			cp.entries[i].NameID = id
		}
	}
	return cp, off, nil
}

func (cp *ConstantPool) classRef(i int) (int, error) {
	e, err := cp.at(i)
	if err != nil {
		return 0, err
	}
	if e.Tag != tagClassRef {
		return 0, newFatal(errResolution, fmt.Sprintf("entry %d is not a ClassRef", i))
	}
	return e.NameID, nil
}

func (cp *ConstantPool) fieldRef(i int) (classIdx, natIdx int, err error) {
	e, err := cp.at(i)
	if err != nil {
		return 0, 0, err
	}
	if e.Tag != tagFieldRef {
		return 0, 0, newFatal(errResolution, fmt.Sprintf("entry %d is not a FieldRef", i))
	}
	return e.ClassIdx, e.NatIdx, nil
}

func (cp *ConstantPool) methodRef(i int) (classIdx, natIdx int, err error) {
	e, err := cp.at(i)
	if err != nil {
		return 0, 0, err
	}
	if e.Tag != tagMethodRef {
		return 0, 0, newFatal(errResolution, fmt.Sprintf("entry %d is not a MethodRef", i))
	}
	return e.ClassIdx, e.NatIdx, nil
}

func (cp *ConstantPool) nameAndType(i int) (nameIdx, descIdx int, err error) {
	e, err := cp.at(i)
	if err != nil {
		return 0, 0, err
	}
	if e.Tag != tagNameAndType {
		return 0, 0, newFatal(errResolution, fmt.Sprintf("entry %d is not a NameAndType", i))
	}
	return e.NameIdx, e.DescIdx, nil
}

func (cp *ConstantPool) utf8ID(i int) (int, error) {
	e, err := cp.at(i)
	if err != nil {
		return 0, err
	}
	if e.Tag != tagUtf8 {
		return 0, newFatal(errResolution, fmt.Sprintf("entry %d is not a Utf8", i))
	}
	return e.Utf8ID, nil
}

func (cp *ConstantPool) utf8Str(i int) (string, error) {
	id, err := cp.utf8ID(i)
	if err != nil {
		return "", err
	}
	return cp.pool.MustLookup(id), nil
}

func (cp *ConstantPool) stringUtf8ID(i int) (int, error) {
	e, err := cp.at(i)
	if err != nil {
		return 0, err
	}
	if e.Tag != tagStringRef {
		return 0, newFatal(errResolution, fmt.Sprintf("entry %d is not a StringRef", i))
	}
	return cp.utf8ID(e.Utf8Idx)
}

func (cp *ConstantPool) longValue(i int) (int32, int32, error) {
	e, err := cp.at(i)
	if err != nil {
		return 0, 0, err
	}
	if e.Tag != tagLong {
		return 0, 0, newFatal(errResolution, fmt.Sprintf("entry %d is not a Long", i))
	}
	return e.Hi, e.Lo, nil
}

// classAndFieldNames resolves a FieldRef index all the way down to the
// (class_name_id, field_name_id) pair the interpreter keys the static-field
// table and object fieldmaps with (spec.md §4.4).
func (cp *ConstantPool) classAndFieldNames(fieldRefIdx int) (classNameID, fieldNameID int, err error) {
	classIdx, natIdx, err := cp.fieldRef(fieldRefIdx)
	if err != nil {
		return 0, 0, err
	}
	classNameIDRaw, err := cp.classRef(classIdx)
	if err != nil {
		return 0, 0, err
	}
	nameIdx, _, err := cp.nameAndType(natIdx)
	if err != nil {
		return 0, 0, err
	}
	fieldNameIDRaw, err := cp.utf8ID(nameIdx)
	if err != nil {
		return 0, 0, err
	}
	return classNameIDRaw, fieldNameIDRaw, nil
}

// classAndMethodNameAndDesc resolves a MethodRef all the way down to the
// class name, method name and descriptor ids the interpreter dispatches on.
func (cp *ConstantPool) classAndMethodNameAndDesc(methodRefIdx int) (classNameID, methodNameID, descID int, err error) {
	classIdx, natIdx, err := cp.methodRef(methodRefIdx)
	if err != nil {
		return 0, 0, 0, err
	}
	classNameID, err = cp.classRef(classIdx)
	if err != nil {
		return 0, 0, 0, err
	}
	nameIdx, descIdx, err := cp.nameAndType(natIdx)
	if err != nil {
		return 0, 0, 0, err
	}
	methodNameID, err = cp.utf8ID(nameIdx)
	if err != nil {
		return 0, 0, 0, err
	}
	descID, err = cp.utf8ID(descIdx)
	if err != nil {
		return 0, 0, 0, err
	}
	return classNameID, methodNameID, descID, nil
}

// findIndexByUtf8 scans for a Utf8 entry with exactly these bytes, used to
// discover well-known method names like "main" and "<clinit>" without
// threading the string pool's id allocation order into the search
// (original_source/src/constant.rs's find_index_by_utf8).
func (cp *ConstantPool) findIndexByUtf8(s string) (int, bool) {
	for i, e := range cp.entries {
		if e.Tag == tagUtf8 && string(e.Utf8Bytes) == s {
			return i, true
		}
	}
	return 0, false
}

// tagName renders a tag for disassembly output.
func tagName(tag byte) string {
	switch tag {
	case tagNull:
		return "Null"
	case tagClassRef:
		return "ClassRef"
	case tagFieldRef:
		return "FieldRef"
	case tagMethodRef:
		return "MethodRef"
	case tagNameAndType:
		return "NameAndType"
	case tagUtf8:
		return "Utf8"
	case tagStringRef:
		return "StringRef"
	case tagLong:
		return "Long"
	case tagDouble:
		return "Double"
	default:
		return "Unknown"
	}
}
