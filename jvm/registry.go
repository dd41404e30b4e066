package jvm

import "fmt"

// ClassRegistry is the process-wide `class_name_id -> Custom | BuiltIn` map
// (spec.md §3/C11), owned by the Interp rather than a package global
// (spec.md §9).
type ClassRegistry struct {
	classes map[int]*Class
	root    string
	pool    *StringPool
	statics *StaticTable

	loading map[int]bool // guards against <clinit> recursion (spec.md §4.10)
}

func newClassRegistry(root string, pool *StringPool, statics *StaticTable) *ClassRegistry {
	return &ClassRegistry{
		classes: newBuiltinRegistry(pool),
		root:    root,
		pool:    pool,
		statics: statics,
		loading: make(map[int]bool),
	}
}

// lookupOrLoad implements spec.md §4.10: return the class if already
// registered; otherwise read it from disk, parse it, seed static defaults,
// run <clinit>, register it, then return it. The registry insert happens
// after <clinit> completes, not before: a class is only visible to a fresh
// lookupOrLoad call once its own initialization has finished. The
// interpreter is passed in so <clinit> can be executed via the normal call
// mechanism.
func (r *ClassRegistry) lookupOrLoad(nameID int, interp *Interp) (*Class, error) {
	if c, ok := r.classes[nameID]; ok {
		return c, nil
	}

	if r.loading[nameID] {
		name, _ := r.pool.Lookup(nameID)
		return nil, newFatal(errLinkage, fmt.Sprintf("recursive <clinit> load of class %s", name))
	}
	r.loading[nameID] = true
	defer delete(r.loading, nameID)

	name, _ := r.pool.Lookup(nameID)
	parsed, err := loadClassFile(r.root, name, r.pool)
	if err != nil {
		return nil, err
	}

	class := &Class{NameID: nameID, Custom: parsed}

	r.statics.seedDefaults(nameID, parsed, r.pool)

	clinitID, ok := parsed.ConstantPool.findIndexByUtf8("<clinit>")
	if ok {
		clinitNameID, err := parsed.ConstantPool.utf8ID(clinitID)
		if err != nil {
			return nil, err
		}
		if m, ok := parsed.findMethodByName(clinitNameID); ok {
			if err := interp.invokeMethodDirect(class, m); err != nil {
				return nil, err
			}
		}
	}

	class.Initialized = true
	r.classes[nameID] = class
	return class, nil
}
