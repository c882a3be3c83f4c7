package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSON renders v as canonical JSON: compact encoding with object
// keys sorted. Two structurally equal documents always produce identical
// bytes, which makes the result safe to hash.
func CanonicalJSON(v any) ([]byte, error) {
	var raw []byte
	switch t := v.(type) {
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal for canonicalization: %w", err)
		}
		raw = data
	}

	// Round-trip through an untyped value so maps come back key-sorted and
	// whitespace is normalized.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// HashJSON returns the hex SHA-256 of the canonical JSON of v. This is the
// hash recorded in provenance input chains.
func HashJSON(v any) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes hashes a raw JSON payload, canonicalizing it first so that
// formatting differences do not change the hash. Payloads that fail to
// canonicalize are hashed verbatim.
func HashBytes(raw json.RawMessage) string {
	data, err := CanonicalJSON(raw)
	if err != nil {
		data = raw
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
