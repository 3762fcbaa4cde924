// Package dataset loads seed documents for the document stores.
//
// Two encodings are supported, selected by file extension: JSON (".json") and
// MessagePack (".msgpack"). Either may be zstd-compressed by appending ".zst".
// A JSON file holds an array of documents or an object with a "data" array.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hugr-lab/optimade-go/predicate"
	"github.com/hugr-lab/optimade-go/store"
)

// Encoding is the serialization of a dataset file.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ErrUnknownFormat is returned for file names with an unsupported extension.
var ErrUnknownFormat = errors.New("unknown dataset format")

// Format describes how a dataset file is stored.
type Format struct {
	Encoding   Encoding
	Compressed bool
}

// DetectFormat derives the format from a file name, e.g. "structures.msgpack.zst".
func DetectFormat(name string) (Format, error) {
	name = strings.ToLower(filepath.Base(name))
	var f Format
	if trimmed, ok := strings.CutSuffix(name, ".zst"); ok {
		f.Compressed = true
		name = trimmed
	}
	switch filepath.Ext(name) {
	case ".json":
		f.Encoding = EncodingJSON
	case ".msgpack", ".mpk":
		f.Encoding = EncodingMsgpack
	default:
		return Format{}, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return f, nil
}

// Load reads and decodes a dataset file.
func Load(path string) ([]store.Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	docs, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return docs, nil
}

// Decode decodes documents in the given format.
// Numbers decode as int64 when integral and float64 otherwise.
func Decode(data []byte, format Format) ([]store.Document, error) {
	if format.Compressed {
		var err error
		if data, err = decompress(data); err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, errors.New("empty dataset")
	}

	var raw any
	switch format.Encoding {
	case EncodingJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
	case EncodingMsgpack:
		if err := msgpack.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format.Encoding)
	}

	if obj, ok := raw.(map[string]any); ok {
		raw, ok = obj["data"]
		if !ok {
			return nil, errors.New(`dataset object has no "data" array`)
		}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("dataset must be an array of documents, got %T", raw)
	}

	docs := make([]store.Document, len(items))
	for i, item := range items {
		m, ok := normalize(item).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("document %d is %T, not an object", i, item)
		}
		docs[i] = m
	}
	return docs, nil
}

// Encode serializes documents in the given format.
func Encode(docs []store.Document, format Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format.Encoding {
	case EncodingJSON:
		data, err = json.MarshalIndent(docs, "", "  ")
	case EncodingMsgpack:
		data, err = msgpack.Marshal(docs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format.Encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format.Encoding, err)
	}

	if !format.Compressed {
		return data, nil
	}
	c, err := newCompressor()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.compress(data), nil
}

// Prepare checks that every document has an identifier under idField and
// sets typeField to entryType where it is missing.
func Prepare(docs []store.Document, entryType, idField, typeField string) error {
	seen := make(map[string]int, len(docs))
	for i, d := range docs {
		id, ok := d[idField]
		if !ok || id == nil {
			return fmt.Errorf("document %d has no %s", i, idField)
		}
		key := fmt.Sprint(id)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("documents %d and %d share %s %q", prev, i, idField, key)
		}
		seen[key] = i
		if v, ok := d[typeField]; !ok || v == nil {
			d[typeField] = entryType
		}
	}
	return nil
}

// ParseTimes replaces timestamp strings in the given fields with UTC
// time.Time values, so that every store compares them as instants.
// A value that is not a valid timestamp is an error.
func ParseTimes(docs []store.Document, fields ...string) error {
	for i, d := range docs {
		for _, f := range fields {
			v, ok := d[f]
			if !ok || v == nil {
				continue
			}
			ts, ok := predicate.ParseTime(v)
			if !ok {
				return fmt.Errorf("document %d: %s is not a timestamp: %v", i, f, v)
			}
			d[f] = ts.UTC()
		}
	}
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}
