package cursor

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/rs/zerolog"
)

// EnvStore reads the cursor from a process environment variable. It is
// read-mostly: a process cannot mutate its parent's environment, so Save
// only logs the value an operator (or orchestration layer) must propagate
// into the next run's environment.
type EnvStore struct {
	name   string
	logger zerolog.Logger
}

// NewEnvStore creates an environment-backed cursor store.
func NewEnvStore(varName string) (*EnvStore, error) {
	if varName == "" {
		return nil, fmt.Errorf("cursor environment variable name is required")
	}
	return &EnvStore{
		name:   varName,
		logger: logging.NewLogger("cursor-env"),
	}, nil
}

// Load reads the cursor from the environment. Unset or empty means no
// prior run.
func (s *EnvStore) Load(ctx context.Context) (int64, error) {
	raw := os.Getenv(s.name)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor from %s: %w", s.name, err)
	}
	return value, nil
}

// Save logs the value the operator must export for the next run.
func (s *EnvStore) Save(ctx context.Context, value int64) error {
	s.logger.Info().
		Int64("cursor", value).
		Str("variable", s.name).
		Msgf("Cursor cannot be persisted to the environment - export %s=%d before the next run", s.name, value)
	return nil
}
