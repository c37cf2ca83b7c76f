package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a stable content-derived key for m. Two documents with
// equal content produce the same fingerprint regardless of where they were
// loaded from. encoding/json emits struct fields in declaration order and
// sorts map keys, which keeps the encoding canonical.
func Fingerprint(m FormMetadata) (string, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("metadata: fingerprint: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(payload), 16), nil
}
