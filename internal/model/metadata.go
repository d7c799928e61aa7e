package model

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// MetadataCapacity is the fixed capacity of a room's encoded metadata buffer.
const MetadataCapacity = 512

// MaxKeyLength bounds metadata keys.
const MaxKeyLength = 32

// nullLiteral marks an absent/null value in the encoded form.
const nullLiteral = "null"

// ValueKind tags the type carried by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindBool
	KindBytes
)

// Value is a small tagged-union metadata value (string/int/bool/bytes).
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Bool  bool
	Bytes []byte
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func BytesValue(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }
func NullValue() Value           { return Value{Kind: KindNull} }
func (v Value) IsNull() bool     { return v.Kind == KindNull }

// wireValue is the MessagePack shape of a typed value.
type wireValue struct {
	Kind  uint8  `msgpack:"k"`
	Str   string `msgpack:"s,omitempty"`
	Int   int64  `msgpack:"i,omitempty"`
	Bool  bool   `msgpack:"b,omitempty"`
	Bytes []byte `msgpack:"y,omitempty"`
}

// Metadata is a room's key/value store serialized into a fixed-capacity text
// buffer. Entries are "key value" pairs, one per line; typed values are base64
// of a MessagePack payload, string-helper values are raw text. Metadata is an
// immutable value: setters return the re-encoded store, or an error and the
// receiver unchanged if the result would exceed MetadataCapacity.
type Metadata string

func (m Metadata) decode() map[string]string {
	entries := make(map[string]string)
	if m == "" {
		return entries
	}
	for _, line := range strings.Split(string(m), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		entries[key] = value
	}
	return entries
}

func encode(entries map[string]string) (Metadata, error) {
	if len(entries) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(entries[k])
	}
	if b.Len() > MetadataCapacity {
		return "", ErrCapacityExceeded
	}
	return Metadata(b.String()), nil
}

func validKey(key string) bool {
	if key == "" || len(key) > MaxKeyLength {
		return false
	}
	return !strings.ContainsAny(key, " \n\r")
}

func (m Metadata) setRaw(key, raw string) (Metadata, error) {
	if !validKey(key) {
		return m, ErrInvalidKey
	}
	entries := m.decode()
	entries[key] = raw
	next, err := encode(entries)
	if err != nil {
		return m, err
	}
	return next, nil
}

// Set stores a typed value under key. The whole map is re-encoded; if the
// result would exceed MetadataCapacity the write fails and m is unchanged.
func (m Metadata) Set(key string, v Value) (Metadata, error) {
	if v.IsNull() {
		return m.setRaw(key, nullLiteral)
	}
	payload, err := msgpack.Marshal(wireValue{
		Kind:  uint8(v.Kind),
		Str:   v.Str,
		Int:   v.Int,
		Bool:  v.Bool,
		Bytes: v.Bytes,
	})
	if err != nil {
		return m, err
	}
	return m.setRaw(key, base64.StdEncoding.EncodeToString(payload))
}

// Get returns the typed value stored under key. Raw string-helper entries are
// returned as string values; the null literal reports absence.
func (m Metadata) Get(key string) (Value, bool) {
	raw, ok := m.decode()[key]
	if !ok || raw == nullLiteral {
		return Value{}, false
	}
	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return StringValue(raw), true
	}
	var wv wireValue
	if err := msgpack.Unmarshal(payload, &wv); err != nil {
		return StringValue(raw), true
	}
	return Value{
		Kind:  ValueKind(wv.Kind),
		Str:   wv.Str,
		Int:   wv.Int,
		Bool:  wv.Bool,
		Bytes: wv.Bytes,
	}, true
}

// SetString stores value as raw text.
func (m Metadata) SetString(key, value string) (Metadata, error) {
	if strings.ContainsAny(value, "\n\r") {
		return m, ErrInvalidKey
	}
	if value == "" {
		return m.setRaw(key, nullLiteral)
	}
	return m.setRaw(key, value)
}

// GetString returns the raw text stored under key, or def when absent or null.
func (m Metadata) GetString(key, def string) string {
	raw, ok := m.decode()[key]
	if !ok || raw == nullLiteral {
		return def
	}
	return raw
}

// SetInt and GetInt layer integer encode-as-string semantics on the string form.
func (m Metadata) SetInt(key string, value int64) (Metadata, error) {
	return m.SetString(key, strconv.FormatInt(value, 10))
}

func (m Metadata) GetInt(key string, def int64) int64 {
	s := m.GetString(key, "")
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// SetBool and GetBool layer boolean encode-as-string semantics on the string form.
func (m Metadata) SetBool(key string, value bool) (Metadata, error) {
	return m.SetString(key, strconv.FormatBool(value))
}

func (m Metadata) GetBool(key string, def bool) bool {
	s := m.GetString(key, "")
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

// SetMatchTime and GetMatchTime layer a match clock on the integer form,
// stored as its seconds-in-day count.
func (m Metadata) SetMatchTime(key string, t MatchTime) (Metadata, error) {
	return m.SetInt(key, t.TotalSeconds())
}

func (m Metadata) GetMatchTime(key string, def MatchTime) MatchTime {
	s := m.GetString(key, "")
	if s == "" {
		return def
	}
	total, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return MatchTimeFromSeconds(total)
}

// Remove deletes key, reporting whether it was present.
func (m Metadata) Remove(key string) (Metadata, bool) {
	entries := m.decode()
	if _, ok := entries[key]; !ok {
		return m, false
	}
	delete(entries, key)
	next, err := encode(entries)
	if err != nil {
		// Removal only shrinks the encoding.
		return m, false
	}
	return next, true
}

// Contains reports whether key is present (including null entries).
func (m Metadata) Contains(key string) bool {
	_, ok := m.decode()[key]
	return ok
}

// Keys returns all present keys in sorted order.
func (m Metadata) Keys() []string {
	entries := m.decode()
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns the raw key/value pairs.
func (m Metadata) Entries() map[string]string {
	return m.decode()
}

// Len returns the number of entries.
func (m Metadata) Len() int {
	return len(m.decode())
}

// Clear drops every entry.
func (m Metadata) Clear() Metadata {
	return ""
}
