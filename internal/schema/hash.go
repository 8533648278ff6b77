package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentHash computes the stable short digest of a pattern's defining
// triple (title, axiom, mechanism). Two patterns with identical values for
// the triple hash identically regardless of ID or any other field.
//
// encoding/json sorts map keys, so the mechanism document serializes
// canonically and the hash is a pure function of the triple's values.
func ContentHash(title, axiom string, mechanism map[string]any) string {
	payload := struct {
		Title     string         `json:"title"`
		Axiom     string         `json:"axiom"`
		Mechanism map[string]any `json:"mechanism"`
	}{title, axiom, mechanism}

	data, err := json.Marshal(payload)
	if err != nil {
		// Mechanism contained a non-serializable value. Fall back to the
		// required fields only; they alone still identify the claim.
		data = []byte(fmt.Sprintf("%s:%s", title, axiom))
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// CandidateHash keys an observer candidate by its (title, axiom) pair.
// It is intentionally independent of mechanism so that repeat observations
// of the same claim with drifting detail still accumulate together.
func CandidateHash(title, axiom string) string {
	sum := sha256.Sum256([]byte(title + ":" + axiom))
	return hex.EncodeToString(sum[:])[:16]
}
