package loc

import "fmt"

type DiagnosticCode int

const (
	ERROR                        DiagnosticCode = 1000
	ERROR_RUNAWAY_TOKENIZER      DiagnosticCode = 1001
	ERROR_IMAGE_DECODE_FAILED    DiagnosticCode = 1002
	ERROR_FETCH_FAILED           DiagnosticCode = 1003
	ERROR_INTERNAL_INVARIANT     DiagnosticCode = 1004
	WARNING                      DiagnosticCode = 2000
	WARNING_UNTERMINATED_COMMENT DiagnosticCode = 2001
	WARNING_UNCLOSED_TAG         DiagnosticCode = 2002
	WARNING_UNMATCHED_END_TAG    DiagnosticCode = 2003
	WARNING_CSS_RECOVERY         DiagnosticCode = 2004
	WARNING_UNKNOWN_PSEUDO_CLASS DiagnosticCode = 2005
	WARNING_UNSUPPORTED_AT_RULE  DiagnosticCode = 2006
	INFO                         DiagnosticCode = 3000
	HINT                         DiagnosticCode = 4000
	JS_SYNTAX_ERROR              DiagnosticCode = 5000
	JS_REFERENCE_ERROR           DiagnosticCode = 5001
	JS_TYPE_ERROR                DiagnosticCode = 5002
	JS_RANGE_ERROR               DiagnosticCode = 5003
)

// DiagnosticSeverity classes a message per the four kinds in the error
// handling design: recoverable parse issues never reach here as errors
// (the producing stage recovers and at most records a warning), runtime
// JS errors and resource errors use WarningSeverity/ErrorSeverity.
// FatalSeverity is declared but the Handler never emits it: fatal
// errors are kept apart and reported through FirstFatal.
type DiagnosticSeverity int

const (
	InformationSeverity DiagnosticSeverity = iota
	HintSeverity
	WarningSeverity
	ErrorSeverity
	FatalSeverity
)

type DiagnosticLocation struct {
	File   string
	Line   int
	Column int
	Length int
}

type DiagnosticMessage struct {
	Code     DiagnosticCode
	Text     string
	Severity DiagnosticSeverity
	Location *DiagnosticLocation
}

// ErrorWithRange pairs a plain error with the byte range in source that
// produced it, so a Handler can later resolve it to a line/column.
type ErrorWithRange struct {
	Code  DiagnosticCode
	Range Range
	Err   error
}

func (e *ErrorWithRange) Error() string { return e.Err.Error() }
func (e *ErrorWithRange) Unwrap() error { return e.Err }

func (e *ErrorWithRange) ToMessage(location *DiagnosticLocation) DiagnosticMessage {
	return DiagnosticMessage{
		Code:     e.Code,
		Text:     e.Err.Error(),
		Location: location,
	}
}

func NewError(code DiagnosticCode, rng Range, format string, args ...interface{}) *ErrorWithRange {
	return &ErrorWithRange{Code: code, Range: rng, Err: fmt.Errorf(format, args...)}
}
