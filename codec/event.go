// Package codec implements the pure decode function from a raw binary
// frame to a typed FeedEvent. No I/O, no state.
package codec

import "github.com/dhanhq/marketfeed/wire"

// Header is the fixed 8-byte packet header common to every FeedEvent.
type Header struct {
	ResponseCode        wire.ResponseCode
	MessageLength       uint16
	ExchangeSegmentCode uint8
	SecurityID          uint32
}

const headerSize = 8

// EventKind tags which FeedEvent variant is populated.
type EventKind uint8

const (
	KindIndex EventKind = iota
	KindTicker
	KindPrevClose
	KindQuote
	KindOI
	KindFull
	KindMarketStatus
	KindDisconnect
)

func (k EventKind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindTicker:
		return "ticker"
	case KindPrevClose:
		return "prev_close"
	case KindQuote:
		return "quote"
	case KindOI:
		return "oi"
	case KindFull:
		return "full"
	case KindMarketStatus:
		return "market_status"
	case KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// DepthLevel is one of the five bid/ask rungs carried by a Full packet.
// 20 bytes on the wire: i32 bid_qty, i32 ask_qty, i16 bid_orders,
// i16 ask_orders, f32 bid_price, f32 ask_price.
type DepthLevel struct {
	BidQty    int32
	AskQty    int32
	BidOrders int16
	AskOrders int16
	BidPrice  float32
	AskPrice  float32
}

// QuoteFields are the 11 fields of a standalone Quote packet (42 bytes):
// f32, i16, i32, f32, i32, i32, i32, f32, f32, f32, f32.
type QuoteFields struct {
	LTP          float32
	LastQty      int16
	LTT          int32
	ATP          float32
	Volume       int32
	TotalSellQty int32
	TotalBuyQty  int32
	Open         float32
	Close        float32
	High         float32
	Low          float32
}

// FullFields are the 14 non-depth fields of a Full packet (46 bytes).
// TotalSellQty, TotalBuyQty, OIDayHigh and OIDayLow are narrower (i16)
// than their Quote-packet counterparts: the wire layout for Full budgets
// 46 non-depth bytes (146 total payload, 154 with header), which only
// fits with four of the fourteen fields at half width. See DESIGN.md for
// the reasoning.
type FullFields struct {
	LTP          float32
	LastQty      int16
	LTT          int32
	ATP          float32
	Volume       int32
	TotalSellQty int16
	TotalBuyQty  int16
	OI           int32
	OIDayHigh    int16
	OIDayLow     int16
	Open         float32
	Close        float32
	High         float32
	Low          float32
	Depth        [5]DepthLevel
}

// FeedEvent is the tagged union decoded from one inbound binary frame.
// Exactly one of the variant fields is meaningful, selected by Kind.
type FeedEvent struct {
	Header Header
	Kind   EventKind

	// KindTicker
	Ticker struct {
		LTP float32
		LTT int32
	}

	// KindPrevClose
	PrevClose struct {
		PrevClose float32
		PrevOI    int32
	}

	// KindQuote
	Quote QuoteFields

	// KindOI
	OI struct {
		OI int32
	}

	// KindFull
	Full FullFields

	// KindMarketStatus / KindIndex: payload layout is not normatively
	// defined on the wire; the trailing bytes are copied verbatim.
	Raw []byte

	// KindDisconnect
	Disconnect struct {
		ReasonCode int16
	}
}
