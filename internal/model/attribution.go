package model

// Attribution is one per-event volume/liquidity attribution row emitted
// for downstream statistics aggregation.
type Attribution struct {
	PoolAddress string          `json:"pool_address"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Timestamp   uint64          `json:"timestamp"`
	EventName   string          `json:"event_name"`
	Amounts     AdjustedAmounts `json:"amounts"`
}
