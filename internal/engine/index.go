package engine

// entry locates the most recent live Set record for a key: the byte range
// [Pos, Pos+Len) of generation Gen's file holds exactly one encoded Set
// record for that key.
type entry struct {
	Gen uint64
	Pos int64
	Len int64
}

// index is a key→entry map with the insert/remove-returning-previous shape
// the engine's dead-byte accounting needs. Iteration order is unspecified
// and not meant to be observed by callers (the distilled spec's §4.4 says
// as much); a plain map is the idiomatic Go choice here, unlike the
// original's BTreeMap, since ordered range iteration is an explicit
// Non-goal of this store.
type index struct {
	m map[string]entry
}

func newIndex() *index {
	return &index{m: make(map[string]entry)}
}

func (ix *index) get(key string) (entry, bool) {
	e, ok := ix.m[key]
	return e, ok
}

// insert records e for key, returning the entry it replaced, if any.
func (ix *index) insert(key string, e entry) (entry, bool) {
	old, had := ix.m[key]
	ix.m[key] = e
	return old, had
}

// remove deletes key from the index, returning the entry it held, if any.
func (ix *index) remove(key string) (entry, bool) {
	old, had := ix.m[key]
	if had {
		delete(ix.m, key)
	}
	return old, had
}

func (ix *index) len() int {
	return len(ix.m)
}

// each calls fn for every (key, entry) pair. fn may return a replacement
// entry, which compact() uses to rewrite locations in place without a
// second traversal.
func (ix *index) each(fn func(key string, e entry) entry) {
	for k, e := range ix.m {
		ix.m[k] = fn(k, e)
	}
}
