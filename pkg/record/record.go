// Package record normalizes detail records into the flat schema persisted to
// the artifact sink and validates them against a configured required-field
// set. Records are maps rather than fixed structs: validity is defined as
// "every configured field present and non-null", which must hold for fields
// the pipeline itself does not know about.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// OwnerPrefix namespaces the owning-account fields hoisted to top level.
const OwnerPrefix = "owner_"

// invalidSampleLimit bounds how many invalid records are logged per batch.
const invalidSampleLimit = 5

// Flattened is a detail record with the owner sub-record's fields hoisted to
// top level. It is the only representation persisted to the artifact sink.
type Flattened map[string]any

// Parse decodes a raw detail response body.
func Parse(data []byte) (map[string]any, error) {
	var detail map[string]any
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("parse detail record: %w", err)
	}
	return detail, nil
}

// Flatten copies the owner sub-record's fields to the top level under the
// owner_ prefix. All other fields, including the nested owner itself, are
// left untouched.
func Flatten(detail map[string]any) Flattened {
	flat := make(Flattened, len(detail)+4)
	for k, v := range detail {
		flat[k] = v
	}

	owner, ok := detail["owner"].(map[string]any)
	if !ok {
		return flat
	}
	for k, v := range owner {
		flat[OwnerPrefix+k] = v
	}
	return flat
}

// Validate reports whether every required field is present and non-null,
// along with the names of the fields that are not.
func Validate(rec Flattened, required []string) (bool, []string) {
	var missing []string
	for _, field := range required {
		value, ok := rec[field]
		if !ok || value == nil {
			missing = append(missing, field)
		}
	}
	return len(missing) == 0, missing
}

// PartitionRecords splits a batch into valid and invalid sets. A bounded
// sample of invalid records is logged with their missing fields; invalid
// records are dropped from the artifact and never retried, since a record's
// validity is not expected to change between runs.
func PartitionRecords(records []Flattened, required []string, logger zerolog.Logger) (valid, invalid []Flattened) {
	logged := 0
	for _, rec := range records {
		ok, missing := Validate(rec, required)
		if ok {
			valid = append(valid, rec)
			continue
		}

		invalid = append(invalid, rec)
		if logged < invalidSampleLimit {
			logged++
			logger.Warn().
				Any("full_name", rec["full_name"]).
				Strs("missing_fields", missing).
				Msg("Dropping invalid record")
		}
	}

	if len(invalid) > 0 {
		logger.Warn().
			Int("invalid_count", len(invalid)).
			Int("valid_count", len(valid)).
			Msg("Batch validation dropped records")
	}
	return valid, invalid
}
