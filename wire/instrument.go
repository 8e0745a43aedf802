package wire

import "fmt"

// Instrument is a tradable symbol on a specific exchange segment, as
// addressed in subscription messages. Compared by value for duplicate
// detection.
type Instrument struct {
	ExchangeSegment string
	SecurityID      string
}

// Key returns the hashable InstrumentKey for this instrument, used as the
// primary key of a slot's subscription table.
func (i Instrument) Key() InstrumentKey {
	return InstrumentKey{ExchangeSegment: i.ExchangeSegment, SecurityID: i.SecurityID}
}

// InstrumentKey is the hashable pair (exchange_segment, security_id).
type InstrumentKey struct {
	ExchangeSegment string
	SecurityID      string
}

func (k InstrumentKey) String() string {
	return fmt.Sprintf("%s:%s", k.ExchangeSegment, k.SecurityID)
}

// instrumentWire is the exact JSON shape of one entry in InstrumentList.
type instrumentWire struct {
	ExchangeSegment string `json:"ExchangeSegment"`
	SecurityID      string `json:"SecurityId"`
}

// SubscriptionMessage is the exact JSON shape of an outbound
// subscribe/unsubscribe control message: one RequestCode plus up to
// MaxInstrumentsPerMessage instruments.
type SubscriptionMessage struct {
	RequestCode     RequestCode      `json:"RequestCode"`
	InstrumentCount int              `json:"InstrumentCount"`
	InstrumentList  []instrumentWire `json:"InstrumentList"`
}

// NewSubscriptionMessage builds the wire message for a batch of
// instruments under the given mode. The caller is responsible for
// chunking batch to at most MaxInstrumentsPerMessage entries.
func NewSubscriptionMessage(mode Mode, batch []Instrument) SubscriptionMessage {
	list := make([]instrumentWire, len(batch))
	for i, ins := range batch {
		list[i] = instrumentWire{ExchangeSegment: ins.ExchangeSegment, SecurityID: ins.SecurityID}
	}
	return SubscriptionMessage{
		RequestCode:     mode.RequestCode(),
		InstrumentCount: len(batch),
		InstrumentList:  list,
	}
}

// Chunk splits instruments into batches of at most n entries (n must be
// positive). The last chunk may be shorter.
func Chunk(instruments []Instrument, n int) [][]Instrument {
	if n <= 0 || len(instruments) == 0 {
		return nil
	}
	var chunks [][]Instrument
	for start := 0; start < len(instruments); start += n {
		end := start + n
		if end > len(instruments) {
			end = len(instruments)
		}
		chunks = append(chunks, instruments[start:end])
	}
	return chunks
}
