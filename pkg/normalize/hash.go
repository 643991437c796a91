package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonicalJSON re-marshals v through a map[string]interface{} round trip so
// every object key is lexicographically sorted (Go's encoding/json already
// sorts map string keys on Marshal; struct field order is not sorted, so we
// force the round trip). Numbers come back as float64, which json.Marshal
// renders with a stable, shortest-round-trip format — acceptable here since
// every numeric field in these shapes is a small integer.
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// contentHash returns the hex SHA-256 of v's canonical JSON form.
func contentHash(v interface{}) (string, error) {
	canon, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
