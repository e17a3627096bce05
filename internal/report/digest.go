package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Canonical returns the canonical serialization of the whole report: object keys sorted,
// no insignificant whitespace, numbers kept as their literal text and no HTML escaping.
// Byte-identical inputs always yield identical output.
func Canonical(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.doc); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Digest returns the lowercase hex SHA-256 of the canonical serialization of the report.
func Digest(r *Report) (string, error) {
	b, err := Canonical(r)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
