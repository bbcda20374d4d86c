// ABOUTME: Error taxonomy for platform and storage calls.
// ABOUTME: Classifies benign rejects so best-effort batches can swallow them.

package platform

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed platform or storage call. The engines use
// the kind, never the underlying error string, to decide whether a unit of
// work failed.
type ErrorKind int

const (
	// KindUnexpected is anything not otherwise classified. Logged with
	// context; the offending unit aborts, siblings are unaffected.
	KindUnexpected ErrorKind = iota

	// KindTransient is a network or rate-limit condition. The adapter
	// retries these internally with backoff before surfacing them.
	KindTransient

	// KindBenign is a platform reject that reflects an already-satisfied
	// or inapplicable request ("already_in_channel" and friends). Never
	// treated as a failure.
	KindBenign

	// KindNotFound means a channel or user could not be resolved. Reported
	// to the invoking actor; the unit aborts.
	KindNotFound

	// KindVerification means the document did not pass the resubmission
	// check. Reported to the uploader; no further state mutation.
	KindVerification

	// KindStorage means the archival upload failed after the origin copy
	// was already deleted, so the failure must reach the uploader.
	KindStorage
)

// Error carries a classified platform error. Code is the raw platform error
// code when one exists.
type Error struct {
	Kind ErrorKind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform: %s", e.Code)
	}
	return fmt.Sprintf("platform: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// benignCodes are platform rejects that mean the request was already
// satisfied or no longer applies. Mutating an absent message or file is a
// tolerated no-op, not a failure.
var benignCodes = map[string]bool{
	"already_in_channel": true,
	"not_in_channel":     true,
	"cant_invite_self":   true,
	"cannot_invite_self": true,
	"cant_kick_self":     true,
	"message_not_found":  true,
	"file_deleted":       true,
	"already_deleted":    true,
}

// NewError wraps a raw platform error code under the given kind.
func NewError(kind ErrorKind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// Classify returns the ErrorKind of err. A nil error classifies as benign
// so call sites can classify unconditionally.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindBenign
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnexpected
}

// IsBenign reports whether err is nil or a benign platform reject.
func IsBenign(err error) bool {
	return Classify(err) == KindBenign
}

// BenignCode reports whether a raw platform error code is a benign reject.
func BenignCode(code string) bool {
	return benignCodes[code]
}
