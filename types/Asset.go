package types

// Asset is the instrument a bar series belongs to in the candle database.
type Asset struct {
	Id     int    `json:"id"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}
