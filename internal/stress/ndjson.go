package stress

import (
	"encoding/json"
	"io"
)

// WriteNDJSON writes one JSON object per line, per spec.md §4.7's
// per-call NDJSON export.
func WriteNDJSON(w io.Writer, results []CallResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
