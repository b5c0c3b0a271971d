package engine

import "io"

// replay streams generation g's records from the start, rebuilding index
// entries and returning the number of dead bytes it found (superseded Sets
// and the Remove records themselves, per §4.6). Decoding stops at the
// first record that fails to parse; any trailing garbage — most commonly a
// final record left half-written by a crash — is silently ignored, which
// is what lets a previous crash tail be tolerated on the next Open.
func (e *Engine) replay(g uint64, r *positionedReader) (int64, error) {
	if err := r.Seek(0); err != nil {
		return 0, err
	}

	dec := newDecoder(r, 0)
	var pos int64
	var dead int64

	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			e.log.Warnw("stopping replay at malformed record",
				"generation", g, "offset", pos)
			break
		}

		newPos := dec.ByteOffset()
		length := newPos - pos

		if m.isSet {
			old, had := e.idx.insert(m.key, entry{Gen: g, Pos: pos, Len: length})
			if had {
				dead += old.Len
			}
		} else {
			if old, had := e.idx.remove(m.key); had {
				dead += old.Len
			}
			dead += length
		}

		pos = newPos
	}

	return dead, nil
}
