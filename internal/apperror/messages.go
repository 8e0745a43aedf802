package apperror

// messages maps error codes to human-readable messages.
var messages = map[Code]string{
	CodeCodec:           "packet decode error",
	CodeTransport:       "websocket transport error",
	CodeInvalidArgument: "invalid argument",
	CodeSerialization:   "subscription message serialization error",
	CodeUpstream:        "server-signalled disconnect",
	CodeCircuitOpen:     "circuit breaker is open",
	CodeCircuitHalfOpen: "circuit breaker is half-open",
}
