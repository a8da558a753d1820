package dto

import "time"

// Quote is a real-time price observation from a market data provider.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	ChangePct float64   `json:"change_pct"`
	Volume    float64   `json:"volume"`
	Source    string    `json:"source"`
	At        time.Time `json:"at"`
}

// MovingAverages holds the short and long simple moving averages of closes.
type MovingAverages struct {
	MA5    float64 `json:"ma5"`
	MA20   float64 `json:"ma20"`
	Source string  `json:"source"`
}
