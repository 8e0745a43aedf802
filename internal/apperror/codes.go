package apperror

// Code represents a unique error code for the application.
type Code string

// The five error kinds the market-feed subsystem distinguishes.
const (
	// CodeCodec marks a truncated packet or unknown response code.
	// Recoverable at the session boundary: skip the frame, continue reading.
	CodeCodec Code = "CODEC_ERROR"

	// CodeTransport marks a socket, TLS, or handshake failure.
	// Terminates the current Session and drives reconnect if enabled.
	CodeTransport Code = "TRANSPORT_ERROR"

	// CodeInvalidArgument marks a caller-side error: capacity exceeded,
	// manager not started, unknown slot id. Never retried internally.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeSerialization marks an outbound subscription JSON that could
	// not be encoded. Surfaced to the caller.
	CodeSerialization Code = "SERIALIZATION_ERROR"

	// CodeUpstream marks a server-signalled disconnect (Disconnect event
	// with a reason_code). Logged and allowed to propagate as a normal
	// event, followed by a transport close.
	CodeUpstream Code = "UPSTREAM_DISCONNECT"
)

// Circuit breaker state codes. No package in this module builds an
// AppError with them: a dial rejected by the slot's breaker returns
// gobreaker's own error (see internal/circuitbreaker).
const (
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
