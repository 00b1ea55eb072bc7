package layout

// Directory is the in-memory copy of the entry table, indexed by slot.
//
// Scans are linear. With a fixed capacity of 32 slots there is nothing to
// gain from an index.
type Directory []Entry

// Lookup returns the slot whose name matches, ignoring the deleted flag.
// When both an active slot and a tombstone carry the name, the active slot
// wins; otherwise the first match in slot order is returned.
func (d Directory) Lookup(name string) (int, bool) {
	tombstone := -1
	for i := range d {
		e := &d[i]
		if e.IsEmpty() || e.NameString() != name {
			continue
		}
		if !e.Deleted {
			return i, true
		}
		if tombstone < 0 {
			tombstone = i
		}
	}
	return tombstone, tombstone >= 0
}

// FindActive returns the active slot named name.
func (d Directory) FindActive(name string) (int, bool) {
	i, ok := d.Lookup(name)
	if !ok || d[i].Deleted {
		return -1, false
	}
	return i, true
}

// NextEmpty returns the first never-used slot at or after from.
func (d Directory) NextEmpty(from int) (int, bool) {
	for i := max(from, 0); i < len(d); i++ {
		if d[i].IsEmpty() {
			return i, true
		}
	}
	return -1, false
}

// Counts classifies every slot.
func (d Directory) Counts() (active, deleted, empty int) {
	for i := range d {
		switch e := &d[i]; {
		case e.IsEmpty():
			empty++
		case e.Deleted:
			deleted++
		default:
			active++
		}
	}
	return active, deleted, empty
}
