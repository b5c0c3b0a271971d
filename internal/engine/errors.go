package engine

import "errors"

// ErrKeyNotFound is returned by Remove when the key is absent. It is a
// domain error, not an I/O error: it never causes a log record to be
// written (§4.5, §8 L8).
var ErrKeyNotFound = errors.New("engine: key not found")

// ErrCorrupt marks a violation of invariant I1: the index pointed at a byte
// range that did not decode as a Set record for the expected key. This can
// only happen if the on-disk generation was tampered with outside the
// engine, since every index entry is only ever installed after writing (or
// replaying) the record it points at.
var ErrCorrupt = errors.New("engine: corrupt index entry")
