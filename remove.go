package zvfs

import "fmt"

// Remove tombstones the entry named name.
//
// The slot and its data bytes stay in place and the entry remains readable
// by name until Compact runs. The full flag is left as it is: a tombstone
// does not free a slot for Add. Removing an entry that is already a
// tombstone reports ErrNotFound.
func (img *Image) Remove(name string) error {
	return img.update(func(s *session) error {
		m := s.meta
		slot, ok := m.Dir.Lookup(name)
		if !ok || m.Dir[slot].Deleted {
			return fmt.Errorf("remove %q: %w", name, ErrNotFound)
		}

		m.Dir[slot].Deleted = true
		if m.Header.FileCount > 0 {
			m.Header.FileCount--
		}
		m.Header.DeletedFiles++

		if err := s.commit(); err != nil {
			return fmt.Errorf("remove %q: %w", name, err)
		}
		img.log().Info("entry removed", "name", name, "slot", slot, "deleted_files", m.Header.DeletedFiles)
		return nil
	})
}
