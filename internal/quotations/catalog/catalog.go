// Package catalog parses a quotation's serialized product list into typed
// line items. The Key defined here is the single identity rule used to match
// a quoted product across quotations, production orders and production
// products; every downstream comparison must go through it.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedCatalog indicates the stored line-item payload is not a
// well-formed list. Callers must treat this as "zero line items available"
// and surface a warning, not a fatal error.
var ErrMalformedCatalog = errors.New("malformed quotation line catalog")

// Key identifies a quoted product line across documents.
// Group is stored trimmed; comparison is ordinary case-sensitive string
// equality after trimming. Build keys only through KeyOf so the trim rule
// cannot be bypassed.
type Key struct {
	ProductID int64  `json:"productId"`
	Group     string `json:"group"`
}

// KeyOf builds a Key, applying the trim rule to the group.
func KeyOf(productID int64, group string) Key {
	return Key{ProductID: productID, Group: strings.TrimSpace(group)}
}

// String renders the key for error messages ("product 10, group \"A\"").
func (k Key) String() string {
	return "product " + strconv.FormatInt(k.ProductID, 10) + ", group " + strconv.Quote(k.Group)
}

// LineItem is one parsed quotation line.
type LineItem struct {
	// RowID is a stable ordinal within the stored list, used only for UI row
	// identity, never for matching.
	RowID      int    `json:"rowId"`
	Key        Key    `json:"key"`
	Name       string `json:"name"`
	Model      string `json:"model"`
	UniqueCode string `json:"uniqueCode"`
	Qty        int    `json:"qty"`
	Size       string `json:"size"`
	Document   string `json:"document"`
}

// rawLine mirrors the stored payload. Numeric fields arrive as either JSON
// numbers or strings depending on which screen wrote them, so they are
// decoded loosely and canonicalized here, at the parse boundary.
type rawLine struct {
	ProductID json.RawMessage `json:"product_id"`
	Group     string          `json:"group"`
	Name      string          `json:"name"`
	Model     string          `json:"model"`
	UniqueCode string         `json:"unique_code"`
	Qty       json.RawMessage `json:"qty"`
	Size      string          `json:"size"`
	Document  string          `json:"document"`
}

// Parse deserializes a quotation's stored product list.
// A payload that is not a well-formed list of line objects, or whose rows
// carry a product id that cannot be canonicalized to an integer, fails with
// ErrMalformedCatalog.
func Parse(raw []byte) ([]LineItem, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrMalformedCatalog
	}

	var rows []rawLine
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, ErrMalformedCatalog
	}

	items := make([]LineItem, 0, len(rows))
	for i, row := range rows {
		productID, ok := coerceInt64(row.ProductID)
		if !ok {
			return nil, ErrMalformedCatalog
		}

		qty, ok := coerceInt64(row.Qty)
		if !ok || qty < 0 {
			qty = 0
		}

		items = append(items, LineItem{
			RowID:      i,
			Key:        KeyOf(productID, row.Group),
			Name:       row.Name,
			Model:      row.Model,
			UniqueCode: row.UniqueCode,
			Qty:        int(qty),
			Size:       row.Size,
			Document:   row.Document,
		})
	}

	return items, nil
}

// QuotedQuantities folds parsed lines into quoted quantity per key.
// Duplicate keys within one quotation accumulate.
func QuotedQuantities(lines []LineItem) map[Key]int {
	quoted := make(map[Key]int, len(lines))
	for _, line := range lines {
		quoted[line.Key] += line.Qty
	}
	return quoted
}

// coerceInt64 accepts a JSON number or a numeric string and canonicalizes it
// to int64. Stored payloads are inconsistent about product_id typing; the
// canonical representation everywhere downstream is the integer produced here.
func coerceInt64(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err == nil {
		if v, err := num.Int64(); err == nil {
			return v, true
		}
		// Tolerate whole-valued floats such as 10.0.
		if f, err := num.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
		return 0, false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(text, 64); ferr == nil && f == float64(int64(f)) {
			return int64(f), true
		}
		return 0, false
	}
	return v, true
}
