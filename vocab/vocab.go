// Package vocab provides frozen string to id tables.
package vocab

import "github.com/pkg/errors"

// Table maps strings to dense ids. Once frozen, unseen strings resolve to the
// unknown id instead of growing the table.
type Table struct {
	ids     map[string]int
	entries []string
	frozen  bool
	unk     int
}

// New creates an empty, unfrozen table.
func New() *Table {
	return &Table{
		ids: make(map[string]int),
		unk: -1,
	}
}

// Build populates a table with entries followed by the reserved strings, freezes
// it, and then registers unk as the unknown entry.
func Build(entries []string, unk string, reserved ...string) *Table {
	t := New()
	for _, e := range entries {
		t.Add(e)
	}
	for _, r := range reserved {
		t.Add(r)
	}
	t.Freeze()
	t.SetUnknown(unk)
	return t
}

// Add returns the id of s, adding it if the table is not yet frozen.
func (t *Table) Add(s string) int {
	if id, ok := t.ids[s]; ok {
		return id
	}
	if t.frozen {
		return t.unk
	}
	id := len(t.entries)
	t.ids[s] = id
	t.entries = append(t.entries, s)
	return id
}

// Freeze stops the table from growing.
func (t *Table) Freeze() { t.frozen = true }

// Frozen returns true if the table no longer grows.
func (t *Table) Frozen() bool { return t.frozen }

// SetUnknown registers s as the unknown entry. s is added to the table even
// though it is frozen.
func (t *Table) SetUnknown(s string) {
	frozen := t.frozen
	t.frozen = false
	t.unk = t.Add(s)
	t.frozen = frozen
}

// ID returns the id of s, or the unknown id if s is not in the table.
func (t *Table) ID(s string) int {
	if id, ok := t.ids[s]; ok {
		return id
	}
	return t.unk
}

// Contains returns true if s has its own entry.
func (t *Table) Contains(s string) bool {
	_, ok := t.ids[s]
	return ok
}

// Unknown returns the unknown id, or -1 if none was registered.
func (t *Table) Unknown() int { return t.unk }

// Entry returns the string with the given id.
func (t *Table) Entry(id int) (string, error) {
	if id < 0 || id >= len(t.entries) {
		return "", errors.Errorf("id %d out of range [0, %d)", id, len(t.entries))
	}
	return t.entries[id], nil
}

// Len returns the number of entries, the unknown entry included.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns the entries in id order.
func (t *Table) Entries() []string {
	retVal := make([]string, len(t.entries))
	copy(retVal, t.entries)
	return retVal
}
