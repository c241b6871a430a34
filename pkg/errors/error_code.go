package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// ErrCodeUnknown is reported by GetCode for errors that did not originate in this module.
	ErrCodeUnknown ErrorCode = 1

	// ErrCodeAuthentication covers token endpoint rejections and credential problems.
	ErrCodeAuthentication ErrorCode = 100

	// ErrCodeParse covers response bodies and stream frames that could not be decoded.
	ErrCodeParse ErrorCode = 200

	// ErrCodeHTTP covers non-2xx responses. The cause is a *StatusError.
	ErrCodeHTTP ErrorCode = 300

	// ErrCodeTimeout covers exhausted retry budgets and lost connections.
	ErrCodeTimeout ErrorCode = 400

	// ErrCodeInternal signals a programming or deployment defect.
	ErrCodeInternal ErrorCode = 500

	// ErrCodeSerialization covers request bodies and headers that could not be encoded.
	ErrCodeSerialization ErrorCode = 600
)

// String returns the kind name of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeAuthentication:
		return "AuthenticationError"
	case ErrCodeParse:
		return "ParseError"
	case ErrCodeHTTP:
		return "HttpError"
	case ErrCodeTimeout:
		return "TimeoutError"
	case ErrCodeInternal:
		return "InternalError"
	case ErrCodeSerialization:
		return "SerializationError"
	default:
		return "UnknownError"
	}
}
