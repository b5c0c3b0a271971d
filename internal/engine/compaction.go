package engine

import (
	"fmt"
	"io"
	"os"
)

// compact reclaims space by copying every live record into a fresh
// generation and unlinking the now-superseded ones (§4.7). It runs
// synchronously on the calling goroutine — the single-threaded model of §5
// means there is no background worker to hand this off to, unlike the
// teacher's channel-plus-goroutine compactionWorker; see DESIGN.md.
func (e *Engine) compact() error {
	compactionGen := e.curGen + 1
	newActiveGen := e.curGen + 2

	// The old active generation's writer handle is superseded the moment
	// compaction starts: nothing is appended to it again, and every live
	// record it held is about to be copied out via its (separate) reader
	// handle, which stays open until the stale-generation sweep below.
	if err := e.writer.Close(); err != nil {
		return fmt.Errorf("close superseded writer for generation %d: %w", e.curGen, err)
	}

	cw, cr, err := e.createGeneration(compactionGen)
	if err != nil {
		return fmt.Errorf("create compaction generation %d: %w", compactionGen, err)
	}
	e.readers[compactionGen] = cr

	liveBefore := e.idx.len()
	var newPos int64
	var copyErr error

	e.idx.each(func(key string, old entry) entry {
		if copyErr != nil {
			return old
		}

		r, ok := e.readers[old.Gen]
		if !ok {
			panic(fmt.Sprintf("engine: compaction: missing reader for generation %d", old.Gen))
		}
		if r.pos != old.Pos {
			if err := r.Seek(old.Pos); err != nil {
				copyErr = fmt.Errorf("seek generation %d: %w", old.Gen, err)
				return old
			}
		}

		n, err := io.CopyN(cw, r, old.Len)
		if err != nil {
			copyErr = fmt.Errorf("copy live record for %q: %w", key, err)
			return old
		}

		moved := entry{Gen: compactionGen, Pos: newPos, Len: n}
		newPos += n
		return moved
	})
	if copyErr != nil {
		return copyErr
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("flush compaction generation %d: %w", compactionGen, err)
	}

	if err := e.openActiveWriter(newActiveGen); err != nil {
		return err
	}

	stale := make([]uint64, 0, len(e.readers))
	for g := range e.readers {
		if g < compactionGen {
			stale = append(stale, g)
		}
	}
	for _, g := range stale {
		e.readers[g].Close()
		delete(e.readers, g)
		if err := os.Remove(logPath(e.dir, g)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale generation %d: %w", g, err)
		}
	}

	e.uncompacted = 0
	e.compactions++

	e.log.Infow("compacted store",
		"live_records", liveBefore,
		"compaction_generation", compactionGen,
		"new_active_generation", newActiveGen,
		"removed_generations", len(stale))

	return nil
}

// createGeneration creates generation g's file for writing and opens a
// reader on it, without making it the active writer target. Used for the
// compaction generation, which is written to directly but is not where
// subsequent Sets go (the new active generation is).
func (e *Engine) createGeneration(g uint64) (*positionedWriter, *positionedReader, error) {
	f, err := os.OpenFile(logPath(e.dir, g), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	w, err := newPositionedWriter(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	r, err := openReader(e.dir, g)
	if err != nil {
		w.Close()
		return nil, nil, err
	}
	return w, r, nil
}
