package server

import (
	"net/http/httptest"
	"testing"
)

func TestPathParam(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		prefix string
		suffix string
		want   string
	}{
		{"id with suffix", "/api/portfolio/assets/btc/pnl", "/api/portfolio/assets/", "/pnl", "btc"},
		{"bare id no suffix", "/api/prices/eth", "/api/prices/", "", "eth"},
		{"id before next segment", "/api/prices/eth/history", "/api/prices/", "", "eth"},
		{"suffix absent returns rest", "/api/portfolio/assets/btc", "/api/portfolio/assets/", "/pnl", "btc"},
		{"prefix mismatch", "/api/other/btc", "/api/prices/", "", ""},
		{"empty remainder", "/api/prices/", "/api/prices/", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.path, nil)
			if got := PathParam(r, tt.prefix, tt.suffix); got != tt.want {
				t.Errorf("PathParam(%q, %q, %q) = %q, want %q", tt.path, tt.prefix, tt.suffix, got, tt.want)
			}
		})
	}
}
