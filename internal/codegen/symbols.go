package codegen

import "toyc/internal/backend"

// SymbolTable maps variable names to stack slots. The namespace is flat: a
// name bound inside an if or for body stays visible for the rest of the
// function, and re-assignment reuses the slot.
type SymbolTable struct {
	slots map[string]backend.Slot
	order []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{slots: make(map[string]backend.Slot)}
}

// Define binds name to slot. It reports false, leaving the table untouched,
// if name is already bound.
func (t *SymbolTable) Define(name string, slot backend.Slot) bool {
	if _, ok := t.slots[name]; ok {
		return false
	}
	t.slots[name] = slot
	t.order = append(t.order, name)
	return true
}

func (t *SymbolTable) Lookup(name string) (backend.Slot, bool) {
	slot, ok := t.slots[name]
	return slot, ok
}

func (t *SymbolTable) Len() int { return len(t.order) }

// Names returns the bound names in binding order.
func (t *SymbolTable) Names() []string {
	return append([]string(nil), t.order...)
}
