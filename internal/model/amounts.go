package model

import "github.com/shopspring/decimal"

// AdjustedAmounts is the attribution result for one event's two legs.
// Native/USD carry the whitelist-filtered tracked value; the untracked
// fields carry the unconditional sum of both legs.
type AdjustedAmounts struct {
	Native          decimal.Decimal `json:"native"`
	USD             decimal.Decimal `json:"usd"`
	NativeUntracked decimal.Decimal `json:"native_untracked"`
	USDUntracked    decimal.Decimal `json:"usd_untracked"`
}
