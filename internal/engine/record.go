package engine

import (
	"encoding/base64"
	"errors"
	"io"

	json "github.com/goccy/go-json"
)

// errBadRecord marks a record that failed to decode, either because the
// stream ended mid-record or because the bytes on disk are not a record
// this codec produced.
var errBadRecord = errors.New("engine: malformed record")

// record is the wire shape of one mutation. Exactly one of Set or Remove is
// present; that's what makes the union self-describing on the wire.
type record struct {
	Set    *setPayload    `json:"Set,omitempty"`
	Remove *removePayload `json:"Remove,omitempty"`
}

type setPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type removePayload struct {
	Key string `json:"key"`
}

// encodeSet returns the bytes for a Set{key, value} record. Keys and values
// are opaque byte blobs (§1), so they travel as base64 inside the JSON
// envelope rather than as raw JSON strings, which are only well-defined for
// valid UTF-8.
func encodeSet(key, value string) []byte {
	return mustMarshal(record{Set: &setPayload{Key: b64(key), Value: b64(value)}})
}

func encodeRemove(key string) []byte {
	return mustMarshal(record{Remove: &removePayload{Key: b64(key)}})
}

func mustMarshal(r record) []byte {
	buf, err := json.Marshal(r)
	if err != nil {
		// record only ever holds strings; Marshal cannot fail.
		panic("engine: unreachable record marshal failure: " + err.Error())
	}
	return buf
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func unb64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", errBadRecord
	}
	return string(b), nil
}

// mutation is the decoded, in-memory form of a record.
type mutation struct {
	isSet bool
	key   string
	value string
}

// decoder streams mutations off a reader and, after each successful Next,
// reports the absolute byte offset reached in the stream. That offset is
// what lets replay compute a record's (pos, len) without any
// external framing — the analogue of
// serde_json::Deserializer::byte_offset() in the original implementation.
type decoder struct {
	base int64 // stream offset where decoding started
	dec  *json.Decoder
}

// newDecoder builds a streaming decoder over r, whose first byte is at
// absolute stream offset `base`.
func newDecoder(r io.Reader, base int64) *decoder {
	return &decoder{base: base, dec: json.NewDecoder(r)}
}

// Next decodes the next record, or returns io.EOF when the stream is
// exhausted cleanly, or errBadRecord when what follows isn't a well-formed
// record (including a truncated tail left by a crash mid-write).
func (d *decoder) Next() (mutation, error) {
	var rec record
	if err := d.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return mutation{}, io.EOF
		}
		return mutation{}, errBadRecord
	}
	return decodedMutation(rec)
}

// ByteOffset reports the absolute offset reached in the underlying stream
// immediately after the last record successfully returned by Next.
func (d *decoder) ByteOffset() int64 {
	return d.base + d.dec.InputOffset()
}

func decodedMutation(rec record) (mutation, error) {
	switch {
	case rec.Set != nil:
		key, err := unb64(rec.Set.Key)
		if err != nil {
			return mutation{}, err
		}
		value, err := unb64(rec.Set.Value)
		if err != nil {
			return mutation{}, err
		}
		return mutation{isSet: true, key: key, value: value}, nil
	case rec.Remove != nil:
		key, err := unb64(rec.Remove.Key)
		if err != nil {
			return mutation{}, err
		}
		return mutation{isSet: false, key: key}, nil
	default:
		return mutation{}, errBadRecord
	}
}

// decodeExactlyOne decodes a single record from a reader constrained to
// exactly one record's bytes — the shape Get needs after seeking to
// (pos, pos+len).
func decodeExactlyOne(r io.Reader) (mutation, error) {
	var rec record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return mutation{}, errBadRecord
	}
	return decodedMutation(rec)
}
