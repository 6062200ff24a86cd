package audit

import "errors"

// Error kinds. Every failure is fatal to the run; the kind only tells an
// operator where it came from. Match with errors.Is.
var (
	// ErrParse marks a setting whose text could not be converted.
	ErrParse = errors.New("parse error")
	// ErrPrivilege marks a privileged lookup that failed to run.
	ErrPrivilege = errors.New("privilege error")
	// ErrLookup marks a lookup that is not configured or could not be started.
	ErrLookup = errors.New("lookup error")
	// ErrNetwork marks a failure to deliver the report to the collector.
	ErrNetwork = errors.New("network error")
)

// Kind returns a short name for the error kind wrapped by err, or "unknown".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrPrivilege):
		return "privilege"
	case errors.Is(err, ErrLookup):
		return "lookup"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "unknown"
	}
}
