// severity.go maps numeric error kinds to report levels.

package artemis

import "strconv"

// ErrorKind is the numeric class of a raised error signal. Values follow the
// classic bit-flag error constants so reports stay comparable with other
// tooling reading the same files.
type ErrorKind int

const (
	ErrorKindFatal         ErrorKind = 1
	ErrorKindWarning       ErrorKind = 2
	ErrorKindParse         ErrorKind = 4
	ErrorKindNotice        ErrorKind = 8
	ErrorKindUserError     ErrorKind = 256
	ErrorKindUserWarning   ErrorKind = 512
	ErrorKindUserNotice    ErrorKind = 1024
	ErrorKindStrict        ErrorKind = 2048
	ErrorKindRecoverable   ErrorKind = 4096
	ErrorKindDeprecated    ErrorKind = 8192
	ErrorKindUserDeprecate ErrorKind = 16384
)

// Report levels.
const (
	LevelCritical = "critical"
	LevelError    = "error"
	LevelWarning  = "warning"
	LevelInfo     = "info"
)

// Severity is the classification of an ErrorKind.
type Severity struct {
	Level    string
	Constant string
}

var severities = map[ErrorKind]Severity{
	ErrorKindFatal:         {LevelError, "E_ERROR"},
	ErrorKindWarning:       {LevelWarning, "E_WARNING"},
	ErrorKindParse:         {LevelCritical, "E_PARSE"},
	ErrorKindNotice:        {LevelInfo, "E_NOTICE"},
	ErrorKindUserError:     {LevelError, "E_USER_ERROR"},
	ErrorKindUserWarning:   {LevelWarning, "E_USER_WARNING"},
	ErrorKindUserNotice:    {LevelInfo, "E_USER_NOTICE"},
	ErrorKindStrict:        {LevelInfo, "E_STRICT"},
	ErrorKindRecoverable:   {LevelError, "E_RECOVERABLE_ERROR"},
	ErrorKindDeprecated:    {LevelInfo, "E_DEPRECATED"},
	ErrorKindUserDeprecate: {LevelInfo, "E_USER_DEPRECATED"},
}

// Classify returns the level and constant name for kind. Unknown kinds are
// info-level and named "#<kind>".
func Classify(kind ErrorKind) Severity {
	if s, ok := severities[kind]; ok {
		return s
	}
	return Severity{Level: LevelInfo, Constant: "#" + strconv.Itoa(int(kind))}
}

// ClassifyLegacy is Classify with the historical parse-error behavior: kind
// 4 is reported exactly like a notice.
func ClassifyLegacy(kind ErrorKind) Severity {
	if kind == ErrorKindParse {
		return severities[ErrorKindNotice]
	}
	return Classify(kind)
}

// IsFatal reports whether kind ends the process: fatal and parse errors.
func (k ErrorKind) IsFatal() bool {
	return k == ErrorKindFatal || k == ErrorKindParse
}
