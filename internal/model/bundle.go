package model

import "github.com/shopspring/decimal"

// BundleID is the storage key of the singleton bundle record.
const BundleID = "1"

// Bundle is the process-wide singleton holding the native asset's USD price.
type Bundle struct {
	NativePriceUSD decimal.Decimal `json:"native_price_usd"`
}
