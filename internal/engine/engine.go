// Package engine implements the append-only, single-writer key/value
// storage engine: log generations, the in-memory key→location index, the
// read/write/remove paths, and compaction.
package engine

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultCompactionThreshold is the dead-byte count (§6) that triggers
// compaction after a successful Set, unless overridden via WithCompaction
// Threshold.
const DefaultCompactionThreshold = 1024 * 1024

// Engine is a single, single-process, single-writer key/value store rooted
// at one directory. It is not safe for concurrent use (§5): every method
// must be called from one goroutine at a time, with no overlapping calls.
type Engine struct {
	dir     string
	log     *zap.SugaredLogger
	thresh  int64
	readers map[uint64]*positionedReader
	writer  *positionedWriter
	curGen  uint64
	idx     *index

	uncompacted int64
	compactions int
}

// Option configures Open.
type Option func(*Engine)

// WithLogger attaches a structured logger. A nil logger (the default) is
// replaced with a no-op logger, so the engine never requires one to
// function.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithCompactionThreshold overrides DefaultCompactionThreshold.
func WithCompactionThreshold(bytes int64) Option {
	return func(e *Engine) { e.thresh = bytes }
}

// Open opens (creating if necessary) the store rooted at dir: it ensures
// dir exists, replays every existing generation to rebuild the index and
// the dead-byte count, and opens a fresh generation as the new active
// writer target (§4.5).
func Open(dir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		dir:     dir,
		log:     zap.NewNop().Sugar(),
		thresh:  DefaultCompactionThreshold,
		readers: make(map[uint64]*positionedReader),
		idx:     newIndex(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create data dir: %w", err)
	}

	gens, err := sortedGenerations(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: enumerate generations: %w", err)
	}
	e.log.Debugw("opening store", "dir", dir, "generations", gens)

	var maxGen uint64
	for _, g := range gens {
		r, err := openReader(dir, g)
		if err != nil {
			return nil, fmt.Errorf("engine: open generation %d: %w", g, err)
		}
		e.readers[g] = r

		dead, err := e.replay(g, r)
		if err != nil {
			return nil, fmt.Errorf("engine: replay generation %d: %w", g, err)
		}
		e.uncompacted += dead

		if g > maxGen {
			maxGen = g
		}
	}

	if err := e.openActiveWriter(maxGen + 1); err != nil {
		return nil, err
	}

	return e, nil
}

func openReader(dir string, g uint64) (*positionedReader, error) {
	f, err := os.Open(logPath(dir, g))
	if err != nil {
		return nil, err
	}
	return newPositionedReader(f)
}

// openActiveWriter creates generation g's file, opens it append-only, and
// makes it the writer target; it also registers a reader for g (I4: the
// writer's generation is always in readers).
func (e *Engine) openActiveWriter(g uint64) error {
	f, err := os.OpenFile(logPath(e.dir, g), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("engine: create generation %d: %w", g, err)
	}
	w, err := newPositionedWriter(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("engine: open writer for generation %d: %w", g, err)
	}

	r, err := openReader(e.dir, g)
	if err != nil {
		w.Close()
		return fmt.Errorf("engine: open reader for generation %d: %w", g, err)
	}

	e.writer = w
	e.curGen = g
	e.readers[g] = r
	return nil
}

// Set writes a Set record, flushes it, and updates the index to point at
// it (§4.5 set). If uncompacted dead bytes now exceed the configured
// threshold, compaction runs synchronously before Set returns (§5: no
// operation suspends, but compaction is itself part of this call when
// triggered).
func (e *Engine) Set(key, value string) error {
	pos := e.writer.pos
	buf := encodeSet(key, value)

	if _, err := e.writer.Write(buf); err != nil {
		return fmt.Errorf("engine: write record: %w", err)
	}
	if err := e.writer.Flush(); err != nil {
		return fmt.Errorf("engine: flush record: %w", err)
	}

	length := e.writer.pos - pos
	old, had := e.idx.insert(key, entry{Gen: e.curGen, Pos: pos, Len: length})
	if had {
		e.uncompacted += old.Len
	}

	if e.uncompacted > e.thresh {
		if err := e.compact(); err != nil {
			return fmt.Errorf("engine: compact: %w", err)
		}
	}
	return nil
}

// Get resolves key through the index and decodes its Set record. It
// returns (value, true, nil) if present, ("", false, nil) if absent, and a
// non-nil error only for I/O failures or an I1 violation.
func (e *Engine) Get(key string) (string, bool, error) {
	ent, ok := e.idx.get(key)
	if !ok {
		return "", false, nil
	}

	r, ok := e.readers[ent.Gen]
	if !ok {
		// I1/I4 violation: the index points at a generation we don't have
		// a reader for. This cannot happen without a bug in this package.
		panic(fmt.Sprintf("engine: index references unknown generation %d", ent.Gen))
	}

	if err := r.Seek(ent.Pos); err != nil {
		return "", false, fmt.Errorf("engine: seek generation %d: %w", ent.Gen, err)
	}

	m, err := decodeExactlyOne(io.LimitReader(r, ent.Len))
	if err != nil {
		return "", false, fmt.Errorf("%w: key %q at generation %d offset %d", ErrCorrupt, key, ent.Gen, ent.Pos)
	}
	if !m.isSet || m.key != key {
		return "", false, fmt.Errorf("%w: key %q at generation %d offset %d", ErrCorrupt, key, ent.Gen, ent.Pos)
	}
	return m.value, true, nil
}

// Remove deletes key. If key is absent, it fails with ErrKeyNotFound and
// writes nothing — a missing key can never become observable as present by
// a Remove (§8 L8).
func (e *Engine) Remove(key string) error {
	old, had := e.idx.get(key)
	if !had {
		return ErrKeyNotFound
	}

	pos := e.writer.pos
	buf := encodeRemove(key)
	if _, err := e.writer.Write(buf); err != nil {
		return fmt.Errorf("engine: write tombstone: %w", err)
	}
	if err := e.writer.Flush(); err != nil {
		return fmt.Errorf("engine: flush tombstone: %w", err)
	}
	removeLen := e.writer.pos - pos

	e.idx.remove(key)
	e.uncompacted += old.Len + removeLen
	return nil
}

// Stats is a read-only snapshot of engine bookkeeping, useful for
// operators and for tests asserting L7 without inspecting file sizes
// directly.
type Stats struct {
	KeyCount         int
	UncompactedBytes int64
	ActiveGeneration uint64
	LiveGenerations  int
	CompactionCount  int
}

func (e *Engine) Stats() Stats {
	return Stats{
		KeyCount:         e.idx.len(),
		UncompactedBytes: e.uncompacted,
		ActiveGeneration: e.curGen,
		LiveGenerations:  len(e.readers),
		CompactionCount:  e.compactions,
	}
}

// Close releases every open generation handle. It is not an error to skip
// calling Close before process exit (the durability guarantee is "flushed
// before the mutating call returned", not "flushed on Close"), but it
// releases file descriptors promptly.
func (e *Engine) Close() error {
	var errs error
	if e.writer != nil {
		errs = multierr.Append(errs, e.writer.Close())
	}
	for _, r := range e.readers {
		errs = multierr.Append(errs, r.Close())
	}
	return errs
}
