// Package zvfs implements a single-file container image that stores up to 32
// named blobs.
//
// An image consists of three regions:
//   - Header: 64 bytes of counters and offsets, starting with the "ZVFSDSK1" tag
//   - Directory: 32 fixed 64-byte slots describing stored blobs
//   - Data: blob bytes, each padded with zeros to a 64-byte boundary
//
// Blobs are appended; removal only tombstones a slot. Compact rebuilds the
// directory and data region to reclaim tombstoned slots and their bytes.
//
// # Quick Start
//
//	img, err := zvfs.Create("disk")
//	if err != nil {
//	    return err
//	}
//	if err := img.AddFile("notes.txt"); err != nil {
//	    return err
//	}
//	text, err := img.ReadText("notes.txt")
//
// # Lookup
//
// Entries are looked up by name only. A removed entry remains readable via
// Extract, ReadFile and ReadText until Compact runs, but it no longer appears
// in List and its name may be added again.
//
// # Concurrency
//
// An image assumes a single process and a single caller. Operations are
// synchronous and hold the file open only for their own duration.
package zvfs
