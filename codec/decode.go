package codec

import (
	"encoding/binary"
	"math"

	"github.com/dhanhq/marketfeed/wire"
)

// Minimum payload lengths per response code, from the wire spec.
const (
	minIndex        = 0
	minTicker       = 8
	minQuote        = 42
	minOI           = 4
	minPrevClose    = 8
	minMarketStatus = 0
	minFull         = 146
	minDisconnect   = 2
)

// Decode parses buf — one complete inbound WebSocket binary frame — into
// a FeedEvent. It is pure: no I/O, no retained state, and it never
// panics. A malformed frame yields a *TruncatedError or *UnknownCodeError
// rather than a partial event.
func Decode(buf []byte) (*FeedEvent, error) {
	if len(buf) < headerSize {
		return nil, &TruncatedError{Have: len(buf), Need: headerSize}
	}

	header := Header{
		ResponseCode:        wire.ResponseCode(buf[0]),
		MessageLength:       binary.LittleEndian.Uint16(buf[1:3]),
		ExchangeSegmentCode: buf[3],
		SecurityID:          binary.LittleEndian.Uint32(buf[4:8]),
	}

	payload := buf[headerSize:]

	switch header.ResponseCode {
	case wire.ResponseIndex:
		return &FeedEvent{Header: header, Kind: KindIndex, Raw: cloneBytes(payload)}, nil

	case wire.ResponseTicker:
		if len(payload) < minTicker {
			return nil, &TruncatedError{Code: header.ResponseCode, Have: len(payload), Need: minTicker}
		}
		ev := &FeedEvent{Header: header, Kind: KindTicker}
		ev.Ticker.LTP = readF32(payload, 0)
		ev.Ticker.LTT = readI32(payload, 4)
		return ev, nil

	case wire.ResponseQuote:
		if len(payload) < minQuote {
			return nil, &TruncatedError{Code: header.ResponseCode, Have: len(payload), Need: minQuote}
		}
		ev := &FeedEvent{Header: header, Kind: KindQuote}
		ev.Quote = readQuoteFields(payload)
		return ev, nil

	case wire.ResponseOI:
		if len(payload) < minOI {
			return nil, &TruncatedError{Code: header.ResponseCode, Have: len(payload), Need: minOI}
		}
		ev := &FeedEvent{Header: header, Kind: KindOI}
		ev.OI.OI = readI32(payload, 0)
		return ev, nil

	case wire.ResponsePrevClose:
		if len(payload) < minPrevClose {
			return nil, &TruncatedError{Code: header.ResponseCode, Have: len(payload), Need: minPrevClose}
		}
		ev := &FeedEvent{Header: header, Kind: KindPrevClose}
		ev.PrevClose.PrevClose = readF32(payload, 0)
		ev.PrevClose.PrevOI = readI32(payload, 4)
		return ev, nil

	case wire.ResponseMarketStatus:
		return &FeedEvent{Header: header, Kind: KindMarketStatus, Raw: cloneBytes(payload)}, nil

	case wire.ResponseFull:
		if len(payload) < minFull {
			return nil, &TruncatedError{Code: header.ResponseCode, Have: len(payload), Need: minFull}
		}
		ev := &FeedEvent{Header: header, Kind: KindFull}
		ev.Full = readFullFields(payload)
		return ev, nil

	case wire.ResponseDisconnect:
		if len(payload) < minDisconnect {
			return nil, &TruncatedError{Code: header.ResponseCode, Have: len(payload), Need: minDisconnect}
		}
		ev := &FeedEvent{Header: header, Kind: KindDisconnect}
		ev.Disconnect.ReasonCode = readI16(payload, 0)
		return ev, nil

	default:
		return nil, &UnknownCodeError{Code: buf[0]}
	}
}

func readQuoteFields(p []byte) QuoteFields {
	return QuoteFields{
		LTP:          readF32(p, 0),
		LastQty:      readI16(p, 4),
		LTT:          readI32(p, 6),
		ATP:          readF32(p, 10),
		Volume:       readI32(p, 14),
		TotalSellQty: readI32(p, 18),
		TotalBuyQty:  readI32(p, 22),
		Open:         readF32(p, 26),
		Close:        readF32(p, 30),
		High:         readF32(p, 34),
		Low:          readF32(p, 38),
	}
}

func readFullFields(p []byte) FullFields {
	f := FullFields{
		LTP:          readF32(p, 0),
		LastQty:      readI16(p, 4),
		LTT:          readI32(p, 6),
		ATP:          readF32(p, 10),
		Volume:       readI32(p, 14),
		TotalSellQty: readI16(p, 18),
		TotalBuyQty:  readI16(p, 20),
		OI:           readI32(p, 22),
		OIDayHigh:    readI16(p, 26),
		OIDayLow:     readI16(p, 28),
		Open:         readF32(p, 30),
		Close:        readF32(p, 34),
		High:         readF32(p, 38),
		Low:          readF32(p, 42),
	}

	const depthStart = 46
	for i := 0; i < 5; i++ {
		off := depthStart + i*20
		f.Depth[i] = DepthLevel{
			BidQty:    readI32(p, off),
			AskQty:    readI32(p, off+4),
			BidOrders: readI16(p, off+8),
			AskOrders: readI16(p, off+10),
			BidPrice:  readF32(p, off+12),
			AskPrice:  readF32(p, off+16),
		}
	}
	return f
}

func readI16(p []byte, off int) int16 {
	return int16(binary.LittleEndian.Uint16(p[off : off+2]))
}

func readI32(p []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(p[off : off+4]))
}

func readF32(p []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[off : off+4]))
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
