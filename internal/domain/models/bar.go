package models

import "time"

// PriceBar is a single daily OHLCV bar. Bars are ordered by date and
// immutable once ingested; everything downstream is derived from them.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
