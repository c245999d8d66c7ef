package domain

import (
	"strings"
	"time"
)

// Product is one inventory record. The local table is the writable source of
// truth; Synced tracks whether the current row has been written to the remote
// document store.
type Product struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"index" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`
	Price       float64   `json:"price"` // price in main currency units (e.g., dollars)
	Quantity    int       `json:"quantity"`
	Category    string    `gorm:"index;size:128" json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Synced      bool      `gorm:"column:synced_with_remote" json:"synced_with_remote"`
}

func (Product) TableName() string {
	return "products"
}

// Valid reports whether the record may be persisted by a mutation path.
func (p *Product) Valid() bool {
	return strings.TrimSpace(p.Name) != "" &&
		p.Price > 0 &&
		p.Quantity >= 0 &&
		strings.TrimSpace(p.Category) != ""
}

// TotalValue is the stock value of this record.
func (p *Product) TotalValue() float64 {
	return p.Price * float64(p.Quantity)
}
