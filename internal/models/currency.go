// internal/models/currency.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is the last known rate for Base -> Quote. Rows are upserted on
// every refresh, so the table holds one row per pair.
type ExchangeRate struct {
	BaseModel
	Base      string          `json:"base" gorm:"size:3;not null;uniqueIndex:idx_exchange_rate_pair"`
	Quote     string          `json:"quote" gorm:"size:3;not null;uniqueIndex:idx_exchange_rate_pair"`
	Rate      decimal.Decimal `json:"rate" gorm:"type:numeric(18,8);not null"`
	Source    string          `json:"source" gorm:"size:100"`
	FetchedAt time.Time       `json:"fetched_at" gorm:"not null"`
}
