package lookup

import (
	"errors"
	"strings"
)

// ConfigurationError reports that lookups cannot reach the remote endpoint
// because settings are missing. No network call was made.
type ConfigurationError struct {
	// Missing names the unset settings, e.g. "token".
	Missing []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return "not configured"
	}
	return "not configured: missing " + strings.Join(e.Missing, ", ") +
		" (run `uuidlens config set` or set UUIDLENS_TOKEN)"
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
