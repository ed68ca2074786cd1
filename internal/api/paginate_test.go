package api

import (
	"net/http/httptest"
	"slices"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantCursor string
		wantLimit  int
	}{
		{"", "", defaultLimit},
		{"?limit=5", "", 5},
		{"?limit=0", "", defaultLimit},
		{"?limit=abc", "", defaultLimit},
		{"?limit=1000", "", maxLimit},
		{"?cursor=" + encodeCursor("u-7"), "u-7", defaultLimit},
		{"?cursor=!!not-base64", "", defaultLimit},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/x"+tt.query, nil)
		cursor, limit := parsePagination(r)
		if cursor != tt.wantCursor || limit != tt.wantLimit {
			t.Errorf("%q: got (%q, %d), want (%q, %d)", tt.query, cursor, limit, tt.wantCursor, tt.wantLimit)
		}
	}
}

func TestPage(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	id := func(s string) string { return s }

	var got []string
	after := ""
	for {
		pg, next := page(items, after, 2, id)
		got = append(got, pg...)
		if next == "" {
			break
		}
		after = decodeCursor(next)
	}
	if !slices.Equal(got, items) {
		t.Errorf("paged = %v, want %v", got, items)
	}

	if pg, next := page(items, "e", 2, id); len(pg) != 0 || next != "" {
		t.Errorf("after last = %v, %q", pg, next)
	}
	if pg, _ := page(items, "zz", 2, id); !slices.Equal(pg, []string{"a", "b"}) {
		t.Errorf("unknown cursor = %v, want first page", pg)
	}
}
