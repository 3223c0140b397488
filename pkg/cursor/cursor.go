// Package cursor persists the extraction cursor: the highest item identifier
// whose detail record has been durably consumed by a prior run.
//
// Backends are interchangeable implementations of the same two operations,
// selected by configuration at startup. All backends return 0 from Load when
// no cursor exists yet, so a first run starts from the beginning of the
// identifier space; "not yet created" is never an error.
package cursor

import "context"

// Store is the cursor persistence contract.
type Store interface {
	// Load returns the persisted cursor, or 0 when none exists.
	Load(ctx context.Context) (int64, error)

	// Save durably persists the cursor. Last writer wins; conflict
	// resolution between cooperating runners is out of scope.
	Save(ctx context.Context, value int64) error
}

// Backend identifies a cursor store implementation.
type Backend string

const (
	// BackendFile stores the cursor as plain text in a local file.
	BackendFile Backend = "file"

	// BackendEnv reads the cursor from a process environment variable.
	// Save only logs the value; the operator must propagate it.
	BackendEnv Backend = "env"

	// BackendS3 stores the cursor as a single S3 object.
	BackendS3 Backend = "s3"

	// BackendDynamoDB stores the cursor in a keyed table with consistent
	// reads, for multiple concurrent runners.
	BackendDynamoDB Backend = "dynamodb"
)
