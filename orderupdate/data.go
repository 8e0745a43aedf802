package orderupdate

import (
	"encoding/json"
	"strings"
)

// FlexibleValue holds a wire value the server emits as either a JSON
// string or a JSON number (StrikePrice, AlgoOrdNo, the lowercase
// Multiplier variant), keeping its textual form regardless of which.
type FlexibleValue string

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (f *FlexibleValue) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexibleValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexibleValue(n.String())
		return nil
	}
	*f = FlexibleValue(strings.Trim(trimmed, `"`))
	return nil
}

// String returns the value as received, exactly as the wire sent it.
func (f FlexibleValue) String() string { return string(f) }

// Message is the top-level envelope: a message type (observed value
// "order_alert") wrapping one OrderUpdateData payload.
type Message struct {
	Type string `json:"Type"`
	Data Data   `json:"Data"`
}

// Data is one order-update snapshot. Every field is optional: the server
// emits heterogeneous snapshots across order states, and several fields
// are sent under both a PascalCase and a lowercase (sometimes
// differently-cased) key. UnmarshalJSON reconciles both spellings into
// the single canonical field below, preferring the PascalCase value when
// both are present.
type Data struct {
	Exchange           string
	Segment            string
	Source             string
	SecurityID         string
	ClientID           string
	ExchOrderNo        string
	OrderNo            string
	Product            string
	TxnType            string
	OrderType          string
	Validity           string
	DiscQuantity       int64
	DiscQtyRem         int64
	RemainingQuantity  int64
	Quantity           int64
	TradedQty          int64
	Price              float64
	TriggerPrice       float64
	TradedPrice        float64
	AvgTradedPrice     float64
	AlgoOrdNo          FlexibleValue
	OffMktFlag         string
	OrderDateTime      string
	ExchOrderTime      string
	LastUpdatedTime    string
	Remarks            string
	MktType            string
	ReasonDescription  string
	LegNo              int32
	InstrumentType     string
	Symbol             string
	ProductName        string
	Status             string
	LotSize            int64
	StrikePrice        FlexibleValue
	ExpiryDate         string
	OptType            string
	DisplayName        string
	Isin               string
	Series             string
	GoodTillDaysDate   string
	RefLTP             float64
	TickSize           float64
	AlgoID             string
	Multiplier         int64
	CorrelationID      string
}

// wireData mirrors the exact wire shape, including every duplicate
// lowercase/alias key, so encoding/json can decode every variant the
// server sends before reconciliation picks the canonical value.
type wireData struct {
	Exchange          *string         `json:"Exchange"`
	Segment           *string         `json:"Segment"`
	Source            *string         `json:"Source"`
	SecurityID        *string         `json:"SecurityId"`
	ClientID          *string         `json:"ClientId"`
	ExchOrderNo       *string         `json:"ExchOrderNo"`
	OrderNo           *string         `json:"OrderNo"`
	Product           *string         `json:"Product"`
	TxnType           *string         `json:"TxnType"`
	OrderType         *string         `json:"OrderType"`
	Validity          *string         `json:"Validity"`
	DiscQuantity      *int64          `json:"DiscQuantity"`
	DiscQtyRem        *int64          `json:"DiscQtyRem"`
	RemainingQuantity *int64          `json:"RemainingQuantity"`
	Quantity          *int64          `json:"Quantity"`
	TradedQty         *int64          `json:"TradedQty"`
	Price             *float64        `json:"Price"`
	TriggerPrice      *float64        `json:"TriggerPrice"`
	TradedPrice       *float64        `json:"TradedPrice"`
	AvgTradedPrice    *float64        `json:"AvgTradedPrice"`
	AlgoOrdNo         FlexibleValue   `json:"AlgoOrdNo"`
	OffMktFlag        *string         `json:"OffMktFlag"`
	OrderDateTime     *string         `json:"OrderDateTime"`
	ExchOrderTime     *string         `json:"ExchOrderTime"`
	LastUpdatedTime   *string         `json:"LastUpdatedTime"`
	Remarks           *string         `json:"Remarks"`
	MktType           *string         `json:"MktType"`
	ReasonDescription *string         `json:"ReasonDescription"`
	LegNo             *int32          `json:"LegNo"`
	Instrument        *string         `json:"Instrument"`
	Symbol            *string         `json:"Symbol"`
	ProductName       *string         `json:"ProductName"`
	Status            *string         `json:"Status"`
	LotSize           *int64          `json:"LotSize"`
	StrikePrice       FlexibleValue   `json:"StrikePrice"`
	ExpiryDate        *string         `json:"ExpiryDate"`
	OptType           *string         `json:"OptType"`
	DisplayName       *string         `json:"DisplayName"`
	Isin              *string         `json:"Isin"`
	Series            *string         `json:"Series"`
	GoodTillDaysDate  *string         `json:"GoodTillDaysDate"`
	RefLtp            *float64        `json:"RefLtp"`
	TickSize          *float64        `json:"TickSize"`
	AlgoId            *string         `json:"AlgoId"`
	Multiplier        *int64          `json:"Multiplier"`
	CorrelationId     *string         `json:"CorrelationId"`

	// lowercase/aliased duplicates observed on the wire.
	SeriesLower           *string       `json:"series"`
	GoodTillDaysDateLower *string       `json:"good_till_days_date"`
	GoodTillDaysDateAlias *string       `json:"goodTillDaysDate"`
	InstrumentTypeLower   *string       `json:"instrument_type"`
	InstrumentTypeAlias   *string       `json:"instrumentType"`
	RefLtpLower           *float64      `json:"ref_ltp"`
	RefLtpAlias           *float64      `json:"refLtp"`
	TickSizeLower         *float64      `json:"tick_size"`
	TickSizeAlias         *float64      `json:"tickSize"`
	AlgoIdLower           *string       `json:"algo_id"`
	AlgoIdAlias           *string       `json:"algoId"`
	MultiplierLower       FlexibleValue `json:"multiplier"`
}

func firstString(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return ""
}

func firstFloat(candidates ...*float64) float64 {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

// UnmarshalJSON reconciles every PascalCase/lowercase/aliased key pair
// into Data's single canonical field set.
func (d *Data) UnmarshalJSON(b []byte) error {
	var w wireData
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*d = Data{
		Exchange:          firstString(w.Exchange),
		Segment:           firstString(w.Segment),
		Source:            firstString(w.Source),
		SecurityID:        firstString(w.SecurityID),
		ClientID:          firstString(w.ClientID),
		ExchOrderNo:       firstString(w.ExchOrderNo),
		OrderNo:           firstString(w.OrderNo),
		Product:           firstString(w.Product),
		TxnType:           firstString(w.TxnType),
		OrderType:         firstString(w.OrderType),
		Validity:          firstString(w.Validity),
		OffMktFlag:        firstString(w.OffMktFlag),
		OrderDateTime:     firstString(w.OrderDateTime),
		ExchOrderTime:     firstString(w.ExchOrderTime),
		LastUpdatedTime:   firstString(w.LastUpdatedTime),
		Remarks:           firstString(w.Remarks),
		MktType:           firstString(w.MktType),
		ReasonDescription: firstString(w.ReasonDescription),
		Symbol:            firstString(w.Symbol),
		ProductName:       firstString(w.ProductName),
		Status:            firstString(w.Status),
		ExpiryDate:        firstString(w.ExpiryDate),
		OptType:           firstString(w.OptType),
		DisplayName:       firstString(w.DisplayName),
		Isin:              firstString(w.Isin),
		CorrelationID:     firstString(w.CorrelationId),
		AlgoOrdNo:         w.AlgoOrdNo,
		StrikePrice:       w.StrikePrice,

		Series:           firstString(w.Series, w.SeriesLower),
		GoodTillDaysDate: firstString(w.GoodTillDaysDate, w.GoodTillDaysDateAlias, w.GoodTillDaysDateLower),
		InstrumentType:   firstString(w.Instrument, w.InstrumentTypeAlias, w.InstrumentTypeLower),
		RefLTP:           firstFloat(w.RefLtp, w.RefLtpAlias, w.RefLtpLower),
		TickSize:         firstFloat(w.TickSize, w.TickSizeAlias, w.TickSizeLower),
		AlgoID:           firstString(w.AlgoId, w.AlgoIdAlias, w.AlgoIdLower),
	}

	if w.DiscQuantity != nil {
		d.DiscQuantity = *w.DiscQuantity
	}
	if w.DiscQtyRem != nil {
		d.DiscQtyRem = *w.DiscQtyRem
	}
	if w.RemainingQuantity != nil {
		d.RemainingQuantity = *w.RemainingQuantity
	}
	if w.Quantity != nil {
		d.Quantity = *w.Quantity
	}
	if w.TradedQty != nil {
		d.TradedQty = *w.TradedQty
	}
	if w.Price != nil {
		d.Price = *w.Price
	}
	if w.TriggerPrice != nil {
		d.TriggerPrice = *w.TriggerPrice
	}
	if w.TradedPrice != nil {
		d.TradedPrice = *w.TradedPrice
	}
	if w.AvgTradedPrice != nil {
		d.AvgTradedPrice = *w.AvgTradedPrice
	}
	if w.LegNo != nil {
		d.LegNo = *w.LegNo
	}
	if w.LotSize != nil {
		d.LotSize = *w.LotSize
	}
	if w.Multiplier != nil {
		d.Multiplier = *w.Multiplier
	} else if w.MultiplierLower != "" {
		if n, err := w.MultiplierLower.asInt64(); err == nil {
			d.Multiplier = n
		}
	}

	return nil
}

func (f FlexibleValue) asInt64() (int64, error) {
	n, err := json.Number(f).Int64()
	return n, err
}
