package models

import (
	"strings"
	"testing"
	"time"
)

// The cursor timestamp is compared as text against created_at in SQL, so it
// must be a format Postgres parses. time.Time.String() emits a trailing
// "UTC" zone name that Postgres rejects after a numeric offset.
func TestGetCursor_PostgresParseableTimestamp(t *testing.T) {
	createdAt := time.Date(2026, 8, 31, 12, 0, 0, 123456789, time.UTC)

	cursors := map[string]string{
		"order":         Order{OwnedBase: OwnedBase{Base: Base{CreatedAt: createdAt}}}.GetCursor(),
		"quote":         Quote{OwnedBase: OwnedBase{Base: Base{CreatedAt: createdAt}}}.GetCursor(),
		"order landing": OrderLandingRow{CreatedAt: createdAt}.GetCursor(),
		"quote landing": QuoteLandingRow{CreatedAt: createdAt}.GetCursor(),
	}
	for name, cursor := range cursors {
		if strings.Contains(cursor, " UTC") {
			t.Errorf("%s cursor carries a zone name: %q", name, cursor)
		}
		parsed, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			t.Errorf("%s cursor is not RFC3339: %v", name, err)
			continue
		}
		if !parsed.Equal(createdAt) {
			t.Errorf("%s cursor lost precision: %s", name, parsed)
		}
	}
}

func TestCompositeCursorRoundTrip_Timestamp(t *testing.T) {
	createdAt := time.Date(2026, 8, 31, 12, 0, 0, 123456789, time.UTC)
	row := OrderLandingRow{Id: "a1b2c3", CreatedAt: createdAt}

	encoded := EncodeCompositeCursor(row.GetCursor(), row.GetId())
	decodedAt, id := DecodeCompositeCursor(&encoded)
	if id != "a1b2c3" {
		t.Fatalf("expected id back, got %q", id)
	}
	if decodedAt != createdAt.Format(time.RFC3339Nano) {
		t.Fatalf("expected timestamp back, got %q", decodedAt)
	}
}

func TestCompositeCursorRoundTrip(t *testing.T) {
	encoded := EncodeCompositeCursor("2026-01-15 10:30:00", "a1b2c3")
	createdAt, id := DecodeCompositeCursor(&encoded)
	if createdAt != "2026-01-15 10:30:00" || id != "a1b2c3" {
		t.Fatalf("round trip got %q / %q", createdAt, id)
	}
}

func TestDecodeCompositeCursor_Degenerate(t *testing.T) {
	cases := []struct {
		name   string
		cursor *string
	}{
		{"nil cursor", nil},
		{"empty cursor", strPtr("")},
		{"not base64", strPtr("%%%")},
		{"missing separator", strPtr(EncodeCursor("no-separator-here"))},
		{"too many parts", strPtr(EncodeCursor("a|b|c"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			createdAt, id := DecodeCompositeCursor(tc.cursor)
			if createdAt != "" || id != "" {
				t.Fatalf("expected empty pair, got %q / %q", createdAt, id)
			}
		})
	}
}

func TestDecodeCursor(t *testing.T) {
	encoded := EncodeCursor("2026-01-15 10:30:00")
	decoded, err := DecodeCursor(&encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != "2026-01-15 10:30:00" {
		t.Fatalf("expected original cursor back, got %q", decoded)
	}

	if decoded, err := DecodeCursor(nil); err != nil || decoded != "" {
		t.Fatalf("nil cursor: expected empty string, got %q err %v", decoded, err)
	}

	bad := "not base64 at all!!!"
	if _, err := DecodeCursor(&bad); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
