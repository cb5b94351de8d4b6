// internal/models/gemstone.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Gemstone struct {
	BaseModel
	SerialNumber  string          `json:"serial_number" gorm:"size:64;uniqueIndex;not null"`
	Name          string          `json:"name" gorm:"size:255;not null"`
	Type          string          `json:"type" gorm:"size:50;not null;index"`
	Color         string          `json:"color" gorm:"size:50;index"`
	Cut           string          `json:"cut" gorm:"size:50"`
	Clarity       string          `json:"clarity" gorm:"size:20"`
	Weight        decimal.Decimal `json:"weight" gorm:"type:numeric(8,2);not null"`
	Origin        string          `json:"origin" gorm:"size:100"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0;check:stock_quantity >= 0"`
	Images        pq.StringArray  `json:"images" gorm:"type:text[]"`
	VideoURL      string          `json:"video_url,omitempty" gorm:"size:500"`
	Certified     bool            `json:"certified" gorm:"default:false"`
	CertLab       string          `json:"cert_lab,omitempty" gorm:"size:100"`
	CertNumber    string          `json:"cert_number,omitempty" gorm:"size:100"`
	Description   string          `json:"description" gorm:"type:text"`
	Attributes    JSONB           `json:"attributes,omitempty" gorm:"type:jsonb"`
	Status        GemstoneStatus  `json:"status" gorm:"type:varchar(20);default:'active';index"`
	Featured      bool            `json:"featured" gorm:"default:false;index"`
	ViewCount     int64           `json:"view_count" gorm:"default:0"`

	// Display fields populated when a currency other than the base is requested.
	DisplayPrice    *decimal.Decimal `json:"display_price,omitempty" gorm:"-"`
	DisplayCurrency string           `json:"display_currency,omitempty" gorm:"-"`
}

func (g *Gemstone) InStock() bool {
	return g.StockQuantity > 0
}

// GemstoneSearchDocument is the full-text expression catalog search matches
// against. The idx_gemstones_search GIN index is built on it.
const GemstoneSearchDocument = "to_tsvector('english', name || ' ' || coalesce(description, ''))"

func (g *Gemstone) IsVisible() bool {
	return g.Status == GemstoneStatusActive
}

type InventoryAlert struct {
	BaseModel
	GemstoneID   uuid.UUID  `json:"gemstone_id" gorm:"type:uuid;not null;index"`
	StockAtAlert int        `json:"stock_at_alert" gorm:"not null"`
	Threshold    int        `json:"threshold" gorm:"not null"`
	Resolved     bool       `json:"resolved" gorm:"default:false;index"`
	ResolvedByID *uuid.UUID `json:"resolved_by_id,omitempty" gorm:"type:uuid"`

	// Relationships
	Gemstone Gemstone `json:"gemstone,omitempty" gorm:"foreignKey:GemstoneID"`
}
