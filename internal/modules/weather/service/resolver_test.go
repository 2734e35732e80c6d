package service

import (
	"context"
	"errors"
	"testing"

	"cloudpico-metobs/internal/modules/weather/types"
)

func TestResolve(t *testing.T) {
	r := NewResolver(testRepo(t), discard())

	tests := []struct {
		query string
		want  int
	}{
		{query: "Stockholm", want: 91},
		{query: "STOCKHOLM", want: 91},
		{query: "stockholm", want: 91},
		{query: "  Arlanda ", want: 97400},
		// Prefix of several names: first in table order wins.
		{query: "stockholm-", want: 98230},
		{query: "stockholm-b", want: 97100},
		{query: "arl", want: 97400},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s, err := r.Resolve(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.query, err)
			}
			if s.ID != tt.want {
				t.Errorf("Resolve(%q) = %d, want %d", tt.query, s.ID, tt.want)
			}
		})
	}
}

func TestResolve_notFound(t *testing.T) {
	r := NewResolver(testRepo(t), discard())
	for _, q := range []string{"Nowhereville", "", "   ", "holm"} {
		if _, err := r.Resolve(context.Background(), q); !errors.Is(err, types.ErrStationNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrStationNotFound", q, err)
		}
	}
}
