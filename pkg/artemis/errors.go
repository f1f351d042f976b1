// errors.go defines the failure taxonomy of the capture pipeline.

package artemis

import "errors"

var (
	// ErrConfiguration reports a log directory that is missing or not
	// writable, or an otherwise invalid Config. Initialize returns it and no
	// hooks are installed.
	ErrConfiguration = errors.New("artemis: invalid configuration")

	// ErrDisabled is returned by Initialize when Config.Enabled is false.
	ErrDisabled = errors.New("artemis: disabled")

	// ErrSerialization reports a report that cannot be encoded: it nests
	// deeper than MaxReportDepth or holds a value with no JSON form.
	ErrSerialization = errors.New("artemis: report not serializable")

	// ErrIO reports a failed sink write.
	ErrIO = errors.New("artemis: write failed")

	// ErrTooDeep is returned when a value nests deeper than a traversal allows.
	ErrTooDeep = errors.New("artemis: value nested too deeply")

	// ErrUnsupportedValue is returned by FromAny for Go values with no
	// Value representation (channels, funcs, NaN, ...).
	ErrUnsupportedValue = errors.New("artemis: unsupported value")
)
