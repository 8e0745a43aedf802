// Package wire holds the constants of the market-feed wire protocol:
// exchange-segment codes, outbound request codes, and inbound response
// codes. Nothing here allocates or performs I/O.
package wire

// Segment is an exchange segment, identified on the wire both by a short
// name (used in JSON subscription messages) and a numeric code (used in
// binary packet headers).
type Segment uint8

const (
	SegmentIDXI         Segment = 0
	SegmentNSEEQ        Segment = 1
	SegmentNSEFNO       Segment = 2
	SegmentNSECurrency  Segment = 3
	SegmentBSEEQ        Segment = 4
	SegmentMCXComm      Segment = 5
	SegmentBSECurrency  Segment = 7
	SegmentBSEFNO       Segment = 8
)

var segmentNames = map[Segment]string{
	SegmentIDXI:        "IDX_I",
	SegmentNSEEQ:       "NSE_EQ",
	SegmentNSEFNO:      "NSE_FNO",
	SegmentNSECurrency: "NSE_CURRENCY",
	SegmentBSEEQ:       "BSE_EQ",
	SegmentMCXComm:     "MCX_COMM",
	SegmentBSECurrency: "BSE_CURRENCY",
	SegmentBSEFNO:      "BSE_FNO",
}

var segmentCodes = func() map[string]Segment {
	m := make(map[string]Segment, len(segmentNames))
	for code, name := range segmentNames {
		m[name] = code
	}
	return m
}()

// String returns the wire name of the segment (e.g. "NSE_EQ"), or "" if
// the code is not one of the eight recognised segments.
func (s Segment) String() string {
	return segmentNames[s]
}

// SegmentByName resolves a wire segment name to its numeric code. The
// second return value is false for unrecognised names.
func SegmentByName(name string) (Segment, bool) {
	s, ok := segmentCodes[name]
	return s, ok
}

// RequestCode is the outbound control-message discriminator sent in the
// "RequestCode" field of a JSON subscription/auth message.
type RequestCode uint8

const (
	RequestConnect                   RequestCode = 11
	RequestDisconnect                RequestCode = 12
	RequestSubscribeTicker           RequestCode = 15
	RequestUnsubscribeTicker         RequestCode = 16
	RequestSubscribeQuote            RequestCode = 17
	RequestUnsubscribeQuote          RequestCode = 18
	RequestSubscribeFull             RequestCode = 21
	RequestUnsubscribeFull           RequestCode = 22
	RequestSubscribeFullMarketDepth  RequestCode = 23
	RequestUnsubscribeFullMarketDepth RequestCode = 24
)

// ResponseCode is the inbound binary-packet discriminator at header
// offset 0.
type ResponseCode uint8

const (
	ResponseIndex        ResponseCode = 1
	ResponseTicker       ResponseCode = 2
	ResponseQuote        ResponseCode = 4
	ResponseOI           ResponseCode = 5
	ResponsePrevClose    ResponseCode = 6
	ResponseMarketStatus ResponseCode = 7
	ResponseFull         ResponseCode = 8
	ResponseDisconnect   ResponseCode = 50
)

// Wire limits (§6).
const (
	// MaxConnections is the maximum number of concurrent feed WebSocket
	// connections a user may hold open.
	MaxConnections = 5

	// MaxInstrumentsPerConnection is the maximum number of subscribed
	// instruments a single connection may carry.
	MaxInstrumentsPerConnection = 5000

	// MaxInstrumentsPerMessage is the maximum instrument count the server
	// accepts in a single subscribe/unsubscribe JSON message; larger
	// batches must be chunked by the caller.
	MaxInstrumentsPerMessage = 100
)
