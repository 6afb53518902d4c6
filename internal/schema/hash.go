package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ContentHash hashes the semantic content of a document, excluding
// Version and GeneratedAt, with every object key sorted recursively
// before feeding the bytes to SHA-256. The first 16 hex characters (64
// bits) are returned (§4.D). Two schemas with the same semantic content
// and any version/timestamp must produce the same hash (§8).
func ContentHash(doc *Document) string {
	stripped := *doc
	stripped.Version = 0
	stripped.GeneratedAt = ""

	raw, err := json.Marshal(&stripped)
	if err != nil {
		// Document always round-trips through the standard library's
		// encoder; a failure here means a caller passed a non-JSON-able
		// Schema.Describe() result, which is a configuration bug, not a
		// runtime condition worth threading an error return through every
		// caller of ContentHash for.
		panic("schema: document failed to marshal: " + err.Error())
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		panic("schema: document failed to round-trip: " + err.Error())
	}

	canonical := canonicalize(generic)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16]
}

// canonicalize re-encodes a decoded JSON value with every object's keys
// sorted, recursively, so that map iteration order in the encoder never
// affects the resulting bytes.
func canonicalize(v any) []byte {
	var buf []byte
	buf = appendCanonical(buf, v)
	return buf
}

func appendCanonical(buf []byte, v any) []byte {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = appendCanonical(buf, val[k])
		}
		buf = append(buf, '}')
	case []any:
		buf = append(buf, '[')
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, item)
		}
		buf = append(buf, ']')
	default:
		b, _ := json.Marshal(val)
		buf = append(buf, b...)
	}
	return buf
}
