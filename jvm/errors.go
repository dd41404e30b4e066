package jvm

import "errors"

// Fatal error taxonomy. All of these abort the running program; none are
// recovered internally. Compare with errors.Is, the way the teacher VM
// compares its own sentinel set.
var (
	errDecode        = errors.New("decode error")
	errResolution    = errors.New("resolution error")
	errLinkage       = errors.New("linkage error")
	errType          = errors.New("type error")
	errStackUnderflow = errors.New("stack underflow")
	errArithmetic    = errors.New("arithmetic error")

	errProgramFinished = errors.New("program finished")
)

// fatalError wraps one of the sentinel kinds with a specific message, so
// errors.Is(err, errType) still succeeds on the wrapped value.
type fatalError struct {
	kind error
	msg  string
}

func (e *fatalError) Error() string { return e.kind.Error() + ": " + e.msg }
func (e *fatalError) Unwrap() error { return e.kind }

func newFatal(kind error, msg string) error {
	return &fatalError{kind: kind, msg: msg}
}
