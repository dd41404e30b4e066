package jvm

// Class unifies Custom (a parsed class file) and BuiltIn (a host-provided
// method table) behind one class-lookup capability (spec.md §3/C6).
type Class struct {
	NameID int

	Custom  *ParsedClass  // nil for a BuiltIn class
	BuiltIn *BuiltInClass // nil for a Custom class

	Initialized bool
}

func (c *Class) isBuiltIn() bool { return c.BuiltIn != nil }

// findMethod resolves (name, desc) within this class only — invoke-family
// opcodes never walk a superclass chain (spec.md §9).
func (c *Class) findMethod(nameID, descID int) (*Method, bool) {
	if c.Custom == nil {
		return nil, false
	}
	return c.Custom.findMethod(nameID, descID)
}
