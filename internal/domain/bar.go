package domain

import "github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"

// Bar is one historical OHLCV row consumed by the replay harness.
type Bar struct {
	Timestamp quant.TimeStamp `json:"ts"`
	Open      float64         `json:"open"`
	High      float64         `json:"high"`
	Low       float64         `json:"low"`
	Close     float64         `json:"close"`
	Volume    float64         `json:"volume"`
}

// BacktestTrade is one completed round trip produced by the replay harness.
type BacktestTrade struct {
	EntryTimestamp quant.TimeStamp `json:"entry_ts"`
	ExitTimestamp  quant.TimeStamp `json:"exit_ts"`
	ReturnPct      float64         `json:"return_pct"`
}
