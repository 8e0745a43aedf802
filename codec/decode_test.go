package codec

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/dhanhq/marketfeed/wire"
)

// Scenario 1 from SPEC_FULL.md §8: Ticker decode.
func TestDecode_TickerScenario(t *testing.T) {
	buf := []byte{0x02, 0x10, 0x00, 0x01, 0x00, 0x00, 0x05, 0x35, 0x00, 0x00, 0x48, 0x43, 0xE0, 0x37, 0xA2, 0x65}

	ev, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if ev.Kind != KindTicker {
		t.Fatalf("Kind = %v, want KindTicker", ev.Kind)
	}
	if ev.Header.ResponseCode != wire.ResponseTicker {
		t.Errorf("ResponseCode = %d, want %d", ev.Header.ResponseCode, wire.ResponseTicker)
	}
	if ev.Header.MessageLength != 16 {
		t.Errorf("MessageLength = %d, want 16", ev.Header.MessageLength)
	}
	if ev.Header.ExchangeSegmentCode != uint8(wire.SegmentNSEEQ) {
		t.Errorf("ExchangeSegmentCode = %d, want %d", ev.Header.ExchangeSegmentCode, wire.SegmentNSEEQ)
	}
	wantSecurityID := binary.LittleEndian.Uint32(buf[4:8])
	if ev.Header.SecurityID != wantSecurityID {
		t.Errorf("SecurityID = %d, want %d", ev.Header.SecurityID, wantSecurityID)
	}

	wantLTP := math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))
	if ev.Ticker.LTP != wantLTP {
		t.Errorf("LTP = %v, want %v", ev.Ticker.LTP, wantLTP)
	}
	if ev.Ticker.LTP != 200.0 {
		t.Errorf("LTP = %v, want 200.0", ev.Ticker.LTP)
	}
	wantLTT := int32(binary.LittleEndian.Uint32(buf[12:16]))
	if ev.Ticker.LTT != wantLTT {
		t.Errorf("LTT = %d, want %d", ev.Ticker.LTT, wantLTT)
	}
}

// Universal invariant from SPEC_FULL.md §8: header fields equal the
// bytes at their fixed offsets, for every valid packet.
func TestDecode_HeaderFieldsMatchOffsets(t *testing.T) {
	buf := make([]byte, headerSize+minOI)
	buf[0] = byte(wire.ResponseOI)
	binary.LittleEndian.PutUint16(buf[1:3], 12)
	buf[3] = byte(wire.SegmentNSEFNO)
	binary.LittleEndian.PutUint32(buf[4:8], 42)
	binary.LittleEndian.PutUint32(buf[8:12], 7)

	ev, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.Header.ResponseCode != wire.ResponseCode(buf[0]) {
		t.Errorf("ResponseCode mismatch")
	}
	if ev.Header.MessageLength != binary.LittleEndian.Uint16(buf[1:3]) {
		t.Errorf("MessageLength mismatch")
	}
	if ev.Header.ExchangeSegmentCode != buf[3] {
		t.Errorf("ExchangeSegmentCode mismatch")
	}
	if ev.Header.SecurityID != binary.LittleEndian.Uint32(buf[4:8]) {
		t.Errorf("SecurityID mismatch")
	}
}

func TestDecode_TooShortForHeader(t *testing.T) {
	_, err := Decode([]byte{0x02, 0x00})
	var te *TruncatedError
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !asTruncated(err, &te) {
		t.Fatalf("error = %v, want *TruncatedError", err)
	}
}

func TestDecode_UnknownResponseCode(t *testing.T) {
	buf := make([]byte, headerSize)
	buf[0] = 3
	_, err := Decode(buf)
	var ue *UnknownCodeError
	if !asUnknownCode(err, &ue) {
		t.Fatalf("error = %v, want *UnknownCodeError", err)
	}
	if ue.Code != 3 {
		t.Errorf("Code = %d, want 3", ue.Code)
	}
}

// Scenario from SPEC_FULL.md §8: Full packet boundary at 154/153 bytes.
func TestDecode_FullPacketBoundary(t *testing.T) {
	full := makeFullPacket(t)
	if len(full) != 154 {
		t.Fatalf("test fixture length = %d, want 154", len(full))
	}

	if _, err := Decode(full); err != nil {
		t.Fatalf("Decode(154 bytes) error = %v", err)
	}

	truncated := full[:153]
	_, err := Decode(truncated)
	var te *TruncatedError
	if !asTruncated(err, &te) {
		t.Fatalf("Decode(153 bytes) error = %v, want *TruncatedError", err)
	}
}

func TestDecode_QuoteRoundTrip(t *testing.T) {
	buf := make([]byte, headerSize+minQuote)
	buf[0] = byte(wire.ResponseQuote)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(buf)))
	buf[3] = byte(wire.SegmentNSEEQ)
	binary.LittleEndian.PutUint32(buf[4:8], 1333)

	p := buf[8:]
	lastQty, ltt, totalSellQty := int16(-7), int32(-1000), int32(-2147483648)
	binary.LittleEndian.PutUint32(p[0:4], math.Float32bits(-1.5))
	binary.LittleEndian.PutUint16(p[4:6], uint16(lastQty))
	binary.LittleEndian.PutUint32(p[6:10], uint32(ltt))
	binary.LittleEndian.PutUint32(p[10:14], math.Float32bits(99.25))
	binary.LittleEndian.PutUint32(p[14:18], uint32(int32(2147483647)))
	binary.LittleEndian.PutUint32(p[18:22], uint32(totalSellQty))
	binary.LittleEndian.PutUint32(p[22:26], uint32(int32(500)))
	binary.LittleEndian.PutUint32(p[26:30], math.Float32bits(10.0))
	binary.LittleEndian.PutUint32(p[30:34], math.Float32bits(11.0))
	binary.LittleEndian.PutUint32(p[34:38], math.Float32bits(12.0))
	binary.LittleEndian.PutUint32(p[38:42], math.Float32bits(9.5))

	ev, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	q := ev.Quote
	switch {
	case q.LTP != -1.5:
		t.Errorf("LTP = %v, want -1.5", q.LTP)
	case q.LastQty != -7:
		t.Errorf("LastQty = %d, want -7", q.LastQty)
	case q.LTT != -1000:
		t.Errorf("LTT = %d, want -1000", q.LTT)
	case q.ATP != 99.25:
		t.Errorf("ATP = %v, want 99.25", q.ATP)
	case q.Volume != 2147483647:
		t.Errorf("Volume = %d, want max int32", q.Volume)
	case q.TotalSellQty != -2147483648:
		t.Errorf("TotalSellQty = %d, want min int32", q.TotalSellQty)
	case q.TotalBuyQty != 500:
		t.Errorf("TotalBuyQty = %d, want 500", q.TotalBuyQty)
	case q.Open != 10.0 || q.Close != 11.0 || q.High != 12.0 || q.Low != 9.5:
		t.Errorf("OHLC mismatch: %+v", q)
	}
}

func makeFullPacket(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, headerSize+minFull)
	buf[0] = byte(wire.ResponseFull)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(buf)))
	buf[3] = byte(wire.SegmentNSEFNO)
	binary.LittleEndian.PutUint32(buf[4:8], 52175)
	return buf
}

func asTruncated(err error, target **TruncatedError) bool {
	te, ok := err.(*TruncatedError)
	if !ok {
		return false
	}
	*target = te
	return true
}

func asUnknownCode(err error, target **UnknownCodeError) bool {
	ue, ok := err.(*UnknownCodeError)
	if !ok {
		return false
	}
	*target = ue
	return true
}
