// Package file provides the file-level primitives used to replace an image or
// an extracted blob in one step.
package file

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrStageClosed is returned when a staged file is used after Commit or Discard.
var ErrStageClosed = errors.New("staged file is closed")

// Staged is a temp file next to its target. Commit syncs it and renames it
// over the target; Discard removes it. Until Commit the target is untouched.
type Staged struct {
	f      *os.File
	target string
	mode   fs.FileMode
	done   bool
}

// Stage creates a temp file in target's directory. The file gets mode on Commit.
func Stage(target string, mode fs.FileMode) (*Staged, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".zvfs-*")
	if err != nil {
		return nil, err
	}
	return &Staged{f: tmp, target: target, mode: mode}, nil
}

// File returns the temp file for writing.
func (s *Staged) File() *os.File {
	return s.f
}

// Commit makes the staged content visible at the target path.
func (s *Staged) Commit() error {
	if s.done {
		return ErrStageClosed
	}
	s.done = true
	tmpPath := s.f.Name()

	if err := s.f.Chmod(s.mode); err != nil {
		s.f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := s.f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Discard removes the temp file. It is a no-op after Commit and safe to defer.
func (s *Staged) Discard() {
	if s.done {
		return
	}
	s.done = true
	s.f.Close()
	os.Remove(s.f.Name())
}

// WriteAtomic stages target, hands the temp file to write and commits it if
// write succeeds. On failure the target is left as it was.
func WriteAtomic(target string, mode fs.FileMode, write func(f *os.File) error) error {
	s, err := Stage(target, mode)
	if err != nil {
		return err
	}
	defer s.Discard()

	if err := write(s.File()); err != nil {
		return err
	}
	return s.Commit()
}
