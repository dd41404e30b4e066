package jvm

// classBuilder assembles a minimal, spec-conformant .class file byte-for-byte
// so the interpreter tests can exercise real Run() calls
// instead of only unit-testing individual decoders. It deliberately knows
// nothing about ParsedClass/CPEntry — it emits the wire format directly, the
// way a disassembler's inverse (an assembler) would.
type classBuilder struct {
	utf8ByStr map[string]int
	entries   [][]byte
	nextIndex int
}

func newClassBuilder() *classBuilder {
	return &classBuilder{utf8ByStr: make(map[string]int), nextIndex: 1}
}

func (b *classBuilder) addEntry(raw []byte) int {
	idx := b.nextIndex
	b.entries = append(b.entries, raw)
	b.nextIndex++
	return idx
}

func u16(v int) []byte { return []byte{byte(v >> 8), byte(v)} }

func (b *classBuilder) utf8(s string) int {
	if idx, ok := b.utf8ByStr[s]; ok {
		return idx
	}
	raw := append([]byte{tagUtf8}, u16(len(s))...)
	raw = append(raw, []byte(s)...)
	idx := b.addEntry(raw)
	b.utf8ByStr[s] = idx
	return idx
}

func (b *classBuilder) classRef(name string) int {
	n := b.utf8(name)
	return b.addEntry(append([]byte{tagClassRef}, u16(n)...))
}

func (b *classBuilder) nameAndType(name, desc string) int {
	n, d := b.utf8(name), b.utf8(desc)
	raw := append([]byte{tagNameAndType}, u16(n)...)
	raw = append(raw, u16(d)...)
	return b.addEntry(raw)
}

func (b *classBuilder) fieldRef(className, fieldName, desc string) int {
	c := b.classRef(className)
	nt := b.nameAndType(fieldName, desc)
	raw := append([]byte{tagFieldRef}, u16(c)...)
	raw = append(raw, u16(nt)...)
	return b.addEntry(raw)
}

func (b *classBuilder) methodRef(className, methodName, desc string) int {
	c := b.classRef(className)
	nt := b.nameAndType(methodName, desc)
	raw := append([]byte{tagMethodRef}, u16(c)...)
	raw = append(raw, u16(nt)...)
	return b.addEntry(raw)
}

func (b *classBuilder) stringRef(s string) int {
	u := b.utf8(s)
	return b.addEntry(append([]byte{tagStringRef}, u16(u)...))
}

// longConst registers a Long entry, reserving the Null sentinel slot the
// decoder inserts after every Long/Double (spec.md §3) so later indices
// still line up.
func (b *classBuilder) longConst(v int64) int {
	hi := uint32(uint64(v) >> 32)
	lo := uint32(v)
	raw := []byte{tagLong, byte(hi >> 24), byte(hi >> 16), byte(hi >> 8), byte(hi),
		byte(lo >> 24), byte(lo >> 16), byte(lo >> 8), byte(lo)}
	idx := b.addEntry(raw)
	b.nextIndex++ // phantom Null sentinel slot
	return idx
}

func (b *classBuilder) cpBytes() []byte {
	var out []byte
	for _, e := range b.entries {
		out = append(out, e...)
	}
	return out
}

type fieldSpec struct {
	name, desc string
	static     bool
}

type methodSpec struct {
	name, desc          string
	maxStack, maxLocals int
	code                []byte
}

// buildClassFile assembles a complete .class file. Any ClassRef/MethodRef/
// FieldRef/StringRef/LongConst entries the bytecode in methods references
// must already have been registered on b (via the methods above) before
// this is called — buildClassFile only adds the this-class ref, field/
// method names, descriptors and the literal "Code" attribute name, then
// serializes the whole pool in one shot.
func buildClassFile(b *classBuilder, thisClassName string, fields []fieldSpec, methods []methodSpec) []byte {
	thisIdx := b.classRef(thisClassName)
	codeNameIdx := b.utf8("Code")

	type preparedField struct{ nameIdx, descIdx, flags int }
	pf := make([]preparedField, len(fields))
	for i, f := range fields {
		flags := 0
		if f.static {
			flags = accStatic
		}
		pf[i] = preparedField{b.utf8(f.name), b.utf8(f.desc), flags}
	}

	type preparedMethod struct {
		nameIdx, descIdx int
		spec             methodSpec
	}
	pm := make([]preparedMethod, len(methods))
	for i, m := range methods {
		pm[i] = preparedMethod{b.utf8(m.name), b.utf8(m.desc), m}
	}

	var out []byte
	out = append(out, 0xCA, 0xFE, 0xBA, 0xBE)
	out = append(out, 0, 0) // minor
	out = append(out, 0, 0) // major
	out = append(out, u16(b.nextIndex)...)
	out = append(out, b.cpBytes()...)
	out = append(out, 0, 0) // access_flags
	out = append(out, u16(thisIdx)...)
	out = append(out, 0, 0) // super_class (unused by the interpreter)
	out = append(out, 0, 0) // interfaces_count

	out = append(out, u16(len(fields))...)
	for _, f := range pf {
		out = append(out, u16(f.flags)...)
		out = append(out, u16(f.nameIdx)...)
		out = append(out, u16(f.descIdx)...)
		out = append(out, 0, 0) // attributes_count
	}

	out = append(out, u16(len(methods))...)
	for _, m := range pm {
		out = append(out, 0, 0) // access_flags
		out = append(out, u16(m.nameIdx)...)
		out = append(out, u16(m.descIdx)...)
		out = append(out, 0, 1) // attributes_count (Code only)

		var body []byte
		body = append(body, u16(m.spec.maxStack)...)
		body = append(body, u16(m.spec.maxLocals)...)
		codeLen := len(m.spec.code)
		body = append(body, byte(codeLen>>24), byte(codeLen>>16), byte(codeLen>>8), byte(codeLen))
		body = append(body, m.spec.code...)
		body = append(body, 0, 0) // exception_table_length
		body = append(body, 0, 0) // nested attributes_count

		out = append(out, u16(codeNameIdx)...)
		attrLen := len(body)
		out = append(out, byte(attrLen>>24), byte(attrLen>>16), byte(attrLen>>8), byte(attrLen))
		out = append(out, body...)
	}

	out = append(out, 0, 0) // class attributes_count
	return out
}
