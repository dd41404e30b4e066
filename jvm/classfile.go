package jvm

import (
	"fmt"
	"os"
	"path/filepath"
)

// Field is a parsed field_info entry.
type Field struct {
	AccessFlags int
	NameID      int
	DescID      int
	IsStatic    bool
	Attributes  []Attribute
}

// Method is a parsed method_info entry.
type Method struct {
	AccessFlags int
	NameID      int
	DescID      int
	Attributes  []Attribute
	Code        *CodeAttr // nil for abstract/native methods (none in this subset)
}

// ParsedClass is the in-memory representation of one binary class file
// (spec.md §3).
type ParsedClass struct {
	Magic, Minor, Major uint32
	ConstantPool        *ConstantPool
	AccessFlags         int
	ThisClassIdx        int
	SuperClassIdx       int
	Interfaces          []int
	Fields              []Field
	Methods             []Method
	Attributes          []Attribute

	ThisClassNameID int
}

const classMagic = 0xCAFEBABE

// LoadClassFileForDisasm exposes loadClassFile to the CLI's disasm command,
// which has no need for a ClassRegistry or <clinit> execution.
func LoadClassFileForDisasm(root, name string, pool *StringPool) (*ParsedClass, error) {
	return loadClassFile(root, name, pool)
}

// loadClassFile reads and parses `<root>/<name>.class` (spec.md §4.10/§6).
func loadClassFile(root, name string, pool *StringPool) (*ParsedClass, error) {
	path := filepath.Join(root, name+".class")
	buf, err := os.ReadFile(path) // #nosec G304 -- root is an operator-supplied trusted directory
	if err != nil {
		return nil, newFatal(errLinkage, fmt.Sprintf("class file not on disk: %s", path))
	}
	return parseClassFile(buf, pool)
}

func parseClassFile(buf []byte, pool *StringPool) (*ParsedClass, error) {
	off := 0
	var err error
	pc := &ParsedClass{}

	pc.Magic, off, err = readNAsUint(buf, off, 4)
	if err != nil {
		return nil, err
	}
	if pc.Magic != classMagic {
		return nil, newFatal(errDecode, fmt.Sprintf("bad magic 0x%08x", pc.Magic))
	}
	pc.Minor, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}
	pc.Major, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}

	var cpCount uint32
	cpCount, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}
	pc.ConstantPool, off, err = parseConstantPool(buf, off, int(cpCount), pool)
	if err != nil {
		return nil, err
	}

	var accessFlags, thisClass, superClass, ifaceCount uint32
	accessFlags, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}
	pc.AccessFlags = int(accessFlags)

	thisClass, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}
	pc.ThisClassIdx = int(thisClass)

	superClass, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}
	pc.SuperClassIdx = int(superClass)

	ifaceCount, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < ifaceCount; i++ {
		var idx uint32
		idx, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, err
		}
		pc.Interfaces = append(pc.Interfaces, int(idx))
	}

	pc.ThisClassNameID, err = pc.ConstantPool.classRef(pc.ThisClassIdx)
	if err != nil {
		return nil, err
	}

	pc.Fields, off, err = parseFields(buf, off, pc.ConstantPool)
	if err != nil {
		return nil, err
	}
	pc.Methods, off, err = parseMethods(buf, off, pc.ConstantPool)
	if err != nil {
		return nil, err
	}

	var attrCount uint32
	attrCount, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, err
	}
	pc.Attributes, _, err = parseAttributes(buf, off, int(attrCount), pc.ConstantPool)
	if err != nil {
		return nil, err
	}

	return pc, nil
}

const accStatic = 0x0008

func parseFields(buf []byte, off int, cp *ConstantPool) ([]Field, int, error) {
	var count uint32
	var err error
	count, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, off, err
	}
	fields := make([]Field, 0, count)
	for i := uint32(0); i < count; i++ {
		var flags, nameIdx, descIdx, attrCount uint32
		flags, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		nameIdx, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		descIdx, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		attrCount, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		attrs, newOff, err := parseAttributes(buf, off, int(attrCount), cp)
		if err != nil {
			return nil, off, err
		}
		off = newOff

		nameID, err := cp.utf8ID(int(nameIdx))
		if err != nil {
			return nil, off, err
		}
		descID, err := cp.utf8ID(int(descIdx))
		if err != nil {
			return nil, off, err
		}
		fields = append(fields, Field{
			AccessFlags: int(flags),
			NameID:      nameID,
			DescID:      descID,
			IsStatic:    int(flags)&accStatic != 0,
			Attributes:  attrs,
		})
	}
	return fields, off, nil
}

func parseMethods(buf []byte, off int, cp *ConstantPool) ([]Method, int, error) {
	var count uint32
	var err error
	count, off, err = readNAsUint(buf, off, 2)
	if err != nil {
		return nil, off, err
	}
	methods := make([]Method, 0, count)
	for i := uint32(0); i < count; i++ {
		var flags, nameIdx, descIdx, attrCount uint32
		flags, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		nameIdx, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		descIdx, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		attrCount, off, err = readNAsUint(buf, off, 2)
		if err != nil {
			return nil, off, err
		}
		attrs, newOff, err := parseAttributes(buf, off, int(attrCount), cp)
		if err != nil {
			return nil, off, err
		}
		off = newOff

		nameID, err := cp.utf8ID(int(nameIdx))
		if err != nil {
			return nil, off, err
		}
		descID, err := cp.utf8ID(int(descIdx))
		if err != nil {
			return nil, off, err
		}

		m := Method{AccessFlags: int(flags), NameID: nameID, DescID: descID, Attributes: attrs}
		for _, a := range attrs {
			if a.Tag == AttrCode {
				m.Code = a.Code
			}
		}
		methods = append(methods, m)
	}
	return methods, off, nil
}

// findMethod looks up a method by exact (name_id, desc_id) match — no
// superclass walk, no vtable (spec.md §9 "no virtual dispatch").
func (pc *ParsedClass) findMethod(nameID, descID int) (*Method, bool) {
	for i := range pc.Methods {
		if pc.Methods[i].NameID == nameID && pc.Methods[i].DescID == descID {
			return &pc.Methods[i], true
		}
	}
	return nil, false
}

// findMethodByName is used for entry-point / <clinit> lookup where the
// descriptor doesn't matter (spec.md only needs "main" and "<clinit>").
func (pc *ParsedClass) findMethodByName(nameID int) (*Method, bool) {
	for i := range pc.Methods {
		if pc.Methods[i].NameID == nameID {
			return &pc.Methods[i], true
		}
	}
	return nil, false
}
