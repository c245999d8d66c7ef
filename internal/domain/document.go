package domain

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
)

// Document is the remote representation of a product: one JSON object per
// record, keyed by the record id in the remote collection. The sync flag is
// local bookkeeping and is never part of a document.
type Document map[string]interface{}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToDocument serializes the record for the remote store. Timestamps travel as
// unix milliseconds.
func (p *Product) ToDocument() Document {
	return Document{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"quantity":    p.Quantity,
		"category":    p.Category,
		"createdAt":   p.CreatedAt.UnixMilli(),
		"updatedAt":   p.UpdatedAt.UnixMilli(),
	}
}

// FromDocument rebuilds a product from a remote document. Missing or mistyped
// fields fall back to zero values, missing timestamps to the current time; a
// record recovered from remote is always considered synced.
func FromDocument(id string, doc Document) Product {
	now := time.Now()
	createdAt := now
	if ms := cast.ToInt64(doc["createdAt"]); ms > 0 {
		createdAt = time.UnixMilli(ms)
	}
	updatedAt := now
	if ms := cast.ToInt64(doc["updatedAt"]); ms > 0 {
		updatedAt = time.UnixMilli(ms)
	}
	return Product{
		ID:          id,
		Name:        cast.ToString(doc["name"]),
		Description: cast.ToString(doc["description"]),
		Price:       cast.ToFloat64(doc["price"]),
		Quantity:    cast.ToInt(doc["quantity"]),
		Category:    cast.ToString(doc["category"]),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Synced:      true,
	}
}

// EncodeDocument renders a document as JSON for the wire.
func EncodeDocument(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeDocument parses a JSON document payload.
func DecodeDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
