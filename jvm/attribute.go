package jvm

import "fmt"

// AttributeTag enumerates standard JVM attribute names; only Code,
// LineNumberTable, StackMapTable and SourceFile are structurally decoded
// (spec.md §4.4 / SPEC_FULL.md C4). Everything else is recognized by name
// but has its bytes skipped wholesale.
type AttributeTag int

const (
	AttrUnknown AttributeTag = iota
	AttrCode
	AttrLineNumberTable
	AttrStackMapTable
	AttrSourceFile
)

var attrNameToTag = map[string]AttributeTag{
	"Code":            AttrCode,
	"LineNumberTable": AttrLineNumberTable,
	"StackMapTable":   AttrStackMapTable,
	"SourceFile":      AttrSourceFile,
	// named but intentionally left unhandled, as in
	// original_source/src/attribute.rs
	"InnerClasses":       AttrUnknown,
	"Exceptions":         AttrUnknown,
	"LocalVariableTable": AttrUnknown,
	"ConstantValue":      AttrUnknown,
	"Deprecated":         AttrUnknown,
	"Signature":          AttrUnknown,
}

// ExceptionTableItem mirrors a Code attribute's exception table row. The
// interpreter never consults it (no exception handling in executed
// programs — Non-goals) but it is decoded so the byte cursor advances
// correctly.
type ExceptionTableItem struct {
	StartPC, EndPC, HandlerPC int
	CatchType                 int
}

// LineNumberEntry is one row of a LineNumberTable attribute.
type LineNumberEntry struct {
	StartPC, LineNumber int
}

// StackMapFrame is a structurally-decoded (but unused) verifier frame.
type StackMapFrame struct {
	Kind   string // "same", "same_locals_1_stack_item", "chop", "same_frame_extended", "append", "full_frame"
	Offset int
}

// CodeAttr is the decoded Code attribute (spec.md §3).
type CodeAttr struct {
	MaxStack, MaxLocals int
	Instructions        []Instruction
	ExceptionTable      []ExceptionTableItem
	Attributes          []Attribute
}

// Attribute is a single decoded class-file attribute.
type Attribute struct {
	Tag  AttributeTag
	Name string

	Code            *CodeAttr
	LineNumbers     []LineNumberEntry
	StackMapFrames  []StackMapFrame
	SourceFileIdx   int
}

// parseAttributes reads `count` attribute entries starting at off.
func parseAttributes(buf []byte, off int, count int, cp *ConstantPool) ([]Attribute, int, error) {
	attrs := make([]Attribute, 0, count)
	for i := 0; i < count; i++ {
		attr, newOff, err := parseOneAttribute(buf, off, cp)
		if err != nil {
			return nil, off, err
		}
		off = newOff
		attrs = append(attrs, attr)
	}
	return attrs, off, nil
}

func parseOneAttribute(buf []byte, off int, cp *ConstantPool) (Attribute, int, error) {
	var nameIdx, length uint32
	var err error
	nameIdx, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return Attribute{}, off, err
	}
	length, off, err = readNAsUint(buf, off, 4)
	if err != nil {
		return Attribute{}, off, err
	}
	name, err := cp.utf8Str(int(nameIdx))
	if err != nil {
		return Attribute{}, off, err
	}

	end := off + int(length)
	tag := attrNameToTag[name]
	attr := Attribute{Tag: tag, Name: name}

	switch tag {
	case AttrCode:
		code, newOff, err := parseCodeAttr(buf, off, cp)
		if err != nil {
			return Attribute{}, off, err
		}
		attr.Code = code
		off = newOff
	case AttrLineNumberTable:
		var tableLen uint32
		tableLen, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return Attribute{}, off, err
		}
		for j := uint32(0); j < tableLen; j++ {
			var startPC, lineNo uint32
			startPC, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return Attribute{}, off, err
			}
			lineNo, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return Attribute{}, off, err
			}
			attr.LineNumbers = append(attr.LineNumbers, LineNumberEntry{int(startPC), int(lineNo)})
		}
	case AttrStackMapTable:
		frames, newOff, err := parseStackMapTable(buf, off, end)
		if err != nil {
			return Attribute{}, off, err
		}
		attr.StackMapFrames = frames
		off = newOff
	case AttrSourceFile:
		var idx uint32
		idx, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return Attribute{}, off, err
		}
		attr.SourceFileIdx = int(idx)
	default:
		// Skip unrecognized/unhandled attributes wholesale (Open Question
		// decision #3 in SPEC_FULL.md): advance past attribute_length bytes
		// rather than erroring.
		off = end
	}

	if off != end {
		// Defensive against a decoder bug in one of the above branches:
		// resync to the declared length rather than drift the whole parse.
		off = end
	}
	return attr, off, nil
}

func parseCodeAttr(buf []byte, off int, cp *ConstantPool) (*CodeAttr, int, error) {
	var maxStack, maxLocals, codeLength uint32
	var err error
	maxStack, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, off, err
	}
	maxLocals, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, off, err
	}
	codeLength, off, err = readNAsUint(buf, off, 4)
	if err != nil {
		return nil, off, err
	}
	codeBytes, off, err := readNAsBytes(buf, off, int(codeLength))
	if err != nil {
		return nil, off, err
	}
	instrs, err := decodeInstructions(codeBytes)
	if err != nil {
		return nil, off, err
	}

	var excLen uint32
	excLen, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, off, err
	}
	excTable := make([]ExceptionTableItem, 0, excLen)
	for i := uint32(0); i < excLen; i++ {
		var startPC, endPC, handlerPC, catchType uint32
		startPC, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		endPC, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		handlerPC, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		catchType, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		excTable = append(excTable, ExceptionTableItem{int(startPC), int(endPC), int(handlerPC), int(catchType)})
	}

	var nestedCount uint32
	nestedCount, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, off, err
	}
	nested, off, err := parseAttributes(buf, off, int(nestedCount), cp)
	if err != nil {
		return nil, off, err
	}

	return &CodeAttr{
		MaxStack:       int(maxStack),
		MaxLocals:      int(maxLocals),
		Instructions:   instrs,
		ExceptionTable: excTable,
		Attributes:     nested,
	}, off, nil
}

// parseStackMapTable decodes frame kinds by tag range only (no verifier
// uses the result — Non-goals), matching original_source's structural but
// inert StackMapFrame handling.
func parseStackMapTable(buf []byte, off, end int) ([]StackMapFrame, int, error) {
	var numEntries uint32
	var err error
	numEntries, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, off, err
	}
	frames := make([]StackMapFrame, 0, numEntries)
	for i := uint32(0); i < numEntries && off < end; i++ {
		var tag uint32
		tag, off, err = readNAsUint(buf, off, 1)
		if err != nil {
			return nil, off, err
		}
		switch {
		case tag <= 63:
			frames = append(frames, StackMapFrame{Kind: "same", Offset: int(tag)})
		case tag <= 127:
			off = skipVerificationTypeInfo(buf, off)
			frames = append(frames, StackMapFrame{Kind: "same_locals_1_stack_item"})
		case tag >= 248 && tag <= 250:
			_, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return nil, off, err
			}
			frames = append(frames, StackMapFrame{Kind: "chop"})
		case tag == 251:
			_, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return nil, off, err
			}
			frames = append(frames, StackMapFrame{Kind: "same_frame_extended"})
		case tag >= 252 && tag <= 254:
			_, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return nil, off, err
			}
			numLocals := int(tag) - 251
			for j := 0; j < numLocals; j++ {
				off = skipVerificationTypeInfo(buf, off)
			}
			frames = append(frames, StackMapFrame{Kind: "append"})
		case tag == 255:
			_, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return nil, off, err
			}
			var numLocals, numStack uint32
			numLocals, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return nil, off, err
			}
			for j := uint32(0); j < numLocals; j++ {
				off = skipVerificationTypeInfo(buf, off)
			}
			numStack, off, err = readNAsUint(buf, off, 2)
			if err != nil {
				return nil, off, err
			}
			for j := uint32(0); j < numStack; j++ {
				off = skipVerificationTypeInfo(buf, off)
			}
			frames = append(frames, StackMapFrame{Kind: "full_frame"})
		default:
			return nil, off, newFatal(errDecode, fmt.Sprintf("unrecognized stack map frame tag %d", tag))
		}
	}
	return frames, off, nil
}

func skipVerificationTypeInfo(buf []byte, off int) int {
	if off >= len(buf) {
		return off
	}
	tag := buf[off]
	off++
	if tag == 7 || tag == 8 { // Object_variable_info / Uninitialized_variable_info
		off += 2
	}
	return off
}
