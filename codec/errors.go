package codec

import (
	"fmt"

	"github.com/dhanhq/marketfeed/wire"
)

// TruncatedError reports a payload shorter than the response code's
// minimum required length.
type TruncatedError struct {
	Code wire.ResponseCode
	Have int
	Need int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("codec: truncated packet for code %d: have %d bytes, need %d", e.Code, e.Have, e.Need)
}

// UnknownCodeError reports a response_code byte outside the known set.
type UnknownCodeError struct {
	Code uint8
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("codec: unknown response code %d", e.Code)
}
