package cmdlog

import (
	"errors"
	"fmt"
)

// ErrorCode classifies command log failures callers branch on.
type ErrorCode string

const (
	CodeReentrantExecute ErrorCode = "REENTRANT_EXECUTE"
	CodeNoSuchCommand    ErrorCode = "NO_SUCH_COMMAND"
	CodeNothingToUndo    ErrorCode = "NOTHING_TO_UNDO"
	CodeNothingToRedo    ErrorCode = "NOTHING_TO_REDO"
)

// LogError is a structured command log failure.
type LogError struct {
	Code    ErrorCode
	Seq     int64
	Message string
}

func (e *LogError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: seq %d: %s", e.Code, e.Seq, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func logErrf(code ErrorCode, seq int64, format string, args ...any) *LogError {
	return &LogError{Code: code, Seq: seq, Message: fmt.Sprintf(format, args...)}
}

func hasCode(err error, code ErrorCode) bool {
	var le *LogError
	return errors.As(err, &le) && le.Code == code
}

// IsNothingToUndo reports whether the head is already at the root.
func IsNothingToUndo(err error) bool { return hasCode(err, CodeNothingToUndo) }

// IsNothingToRedo reports whether the head has no children to advance to.
func IsNothingToRedo(err error) bool { return hasCode(err, CodeNothingToRedo) }

// IsReentrant reports whether a command was issued from inside another.
func IsReentrant(err error) bool { return hasCode(err, CodeReentrantExecute) }

// IsNoSuchCommand reports whether a sequence number is absent from the log.
func IsNoSuchCommand(err error) bool { return hasCode(err, CodeNoSuchCommand) }

// HashMismatchError reports the first command whose replayed state hash
// diverges from the recorded one.
type HashMismatchError struct {
	Seq      int64
	Recorded string
	Computed string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("state hash mismatch at seq %d: recorded %s, computed %s",
		e.Seq, e.Recorded, e.Computed)
}

// IsHashMismatch reports whether err carries a replay divergence.
func IsHashMismatch(err error) bool {
	var he *HashMismatchError
	return errors.As(err, &he)
}
