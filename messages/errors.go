package messages

import "github.com/pkg/errors"

// Errors of the untrusted-input universe. Network input failing any of these
// checks is dropped by the caller; it never crashes the process. Defects in
// the node's own data or logic are a separate universe and panic instead.
var (
	// ErrTooShort means a buffer is shorter than the minimum signed frame.
	ErrTooShort = errors.New("buffer is too short for a signed message")
	// ErrInvalidSignature means the signature does not match the embedded
	// payload and author key.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnknownTag means the payload carries a discriminant outside the
	// protocol's closed set.
	ErrUnknownTag = errors.New("unknown message tag")
	// ErrTrailingData means the payload has bytes past the decoded message.
	ErrTrailingData = errors.New("trailing data after message body")
	// ErrUnexpectedType means a decoded message is not of the type the
	// caller asked for.
	ErrUnexpectedType = errors.New("unexpected message type")
)
