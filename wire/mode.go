package wire

// Mode is the subscription granularity requested for an instrument: how
// much data the server streams for it. Connect and Disconnect are
// reserved wire-level codes, not selectable subscription modes.
type Mode uint8

const (
	ModeTicker Mode = iota
	ModeQuote
	ModeFull
	ModeFullMarketDepth
	ModeUnsubscribeTicker
	ModeUnsubscribeQuote
	ModeUnsubscribeFull
	ModeUnsubscribeFullMarketDepth
	modeConnect
	modeDisconnect
)

// subscribeCode returns the RequestCode used to (un)subscribe instruments
// in this mode.
func (m Mode) subscribeCode() RequestCode {
	switch m {
	case ModeTicker:
		return RequestSubscribeTicker
	case ModeQuote:
		return RequestSubscribeQuote
	case ModeFull:
		return RequestSubscribeFull
	case ModeFullMarketDepth:
		return RequestSubscribeFullMarketDepth
	case ModeUnsubscribeTicker:
		return RequestUnsubscribeTicker
	case ModeUnsubscribeQuote:
		return RequestUnsubscribeQuote
	case ModeUnsubscribeFull:
		return RequestUnsubscribeFull
	case ModeUnsubscribeFullMarketDepth:
		return RequestUnsubscribeFullMarketDepth
	default:
		return 0
	}
}

// RequestCode returns the outbound wire code for this subscription mode.
func (m Mode) RequestCode() RequestCode {
	return m.subscribeCode()
}

// IsUnsubscribe reports whether m is one of the Unsubscribe* variants.
func (m Mode) IsUnsubscribe() bool {
	switch m {
	case ModeUnsubscribeTicker, ModeUnsubscribeQuote, ModeUnsubscribeFull, ModeUnsubscribeFullMarketDepth:
		return true
	default:
		return false
	}
}

// Unsubscribe returns the Unsubscribe counterpart of a subscribe mode (a
// no-op if m is already an unsubscribe mode).
func (m Mode) Unsubscribe() Mode {
	switch m {
	case ModeTicker:
		return ModeUnsubscribeTicker
	case ModeQuote:
		return ModeUnsubscribeQuote
	case ModeFull:
		return ModeUnsubscribeFull
	case ModeFullMarketDepth:
		return ModeUnsubscribeFullMarketDepth
	default:
		return m
	}
}

func (m Mode) String() string {
	switch m {
	case ModeTicker:
		return "Ticker"
	case ModeQuote:
		return "Quote"
	case ModeFull:
		return "Full"
	case ModeFullMarketDepth:
		return "FullMarketDepth"
	case ModeUnsubscribeTicker:
		return "UnsubscribeTicker"
	case ModeUnsubscribeQuote:
		return "UnsubscribeQuote"
	case ModeUnsubscribeFull:
		return "UnsubscribeFull"
	case ModeUnsubscribeFullMarketDepth:
		return "UnsubscribeFullMarketDepth"
	default:
		return "Unknown"
	}
}
