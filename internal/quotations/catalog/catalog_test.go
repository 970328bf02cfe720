package catalog

import "testing"

func TestKeyOfTrimsGroup(t *testing.T) {
	a := KeyOf(5, " Frames ")
	b := KeyOf(5, "Frames")
	if a != b {
		t.Fatalf("expected %v == %v after trimming", a, b)
	}
}

func TestKeyOfIsCaseSensitive(t *testing.T) {
	a := KeyOf(5, "Frames")
	b := KeyOf(5, "frames")
	if a == b {
		t.Fatalf("group comparison must be case-sensitive, got equal keys %v", a)
	}
}

func TestParseCanonicalPayload(t *testing.T) {
	raw := []byte(`[
		{"product_id": 10, "group": "A", "name": "Door", "model": "D-1", "unique_code": "U1", "qty": 50, "size": "L", "document": "doc.pdf"},
		{"product_id": 11, "group": " B ", "qty": 3}
	]`)

	items, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].RowID != 0 || items[1].RowID != 1 {
		t.Errorf("row ids must be stable ordinals, got %d and %d", items[0].RowID, items[1].RowID)
	}
	if items[0].Key != KeyOf(10, "A") {
		t.Errorf("unexpected key for first line: %v", items[0].Key)
	}
	if items[0].Qty != 50 || items[0].Name != "Door" || items[0].UniqueCode != "U1" {
		t.Errorf("first line fields not parsed: %+v", items[0])
	}
	if items[1].Key.Group != "B" {
		t.Errorf("group must be stored trimmed, got %q", items[1].Key.Group)
	}
}

func TestParseNormalizesLooseProductIDs(t *testing.T) {
	// Older screens stored product_id as a string, sometimes as a float.
	raw := []byte(`[
		{"product_id": "10", "group": "A", "qty": "5"},
		{"product_id": 10.0, "group": "A", "qty": 2}
	]`)

	items, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Key != items[1].Key {
		t.Fatalf("string and numeric product ids must canonicalize to the same key: %v vs %v", items[0].Key, items[1].Key)
	}
	if items[0].Qty != 5 {
		t.Errorf("string qty not coerced, got %d", items[0].Qty)
	}
}

func TestParseMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "oops"},
		{"not a list", `{"product_id": 1}`},
		{"row without product id", `[{"group": "A", "qty": 1}]`},
		{"non-numeric product id", `[{"product_id": "abc", "group": "A", "qty": 1}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.raw)); err != ErrMalformedCatalog {
				t.Fatalf("expected ErrMalformedCatalog, got %v", err)
			}
		})
	}
}

func TestParseClampsNegativeQty(t *testing.T) {
	raw := []byte(`[{"product_id": 1, "group": "A", "qty": -4}]`)
	items, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Qty != 0 {
		t.Fatalf("negative qty must clamp to 0, got %d", items[0].Qty)
	}
}

func TestQuotedQuantitiesAccumulatesDuplicateKeys(t *testing.T) {
	lines := []LineItem{
		{Key: KeyOf(1, "A"), Qty: 10},
		{Key: KeyOf(1, " A "), Qty: 5},
		{Key: KeyOf(2, "A"), Qty: 7},
	}

	quoted := QuotedQuantities(lines)
	if quoted[KeyOf(1, "A")] != 15 {
		t.Errorf("duplicate keys must accumulate, got %d", quoted[KeyOf(1, "A")])
	}
	if quoted[KeyOf(2, "A")] != 7 {
		t.Errorf("unexpected quoted qty for second key: %d", quoted[KeyOf(2, "A")])
	}
}
