package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Result
	}{
		{"7 Night Western Caribbean", Result{Nights: 7, Destination: "Western Caribbean"}},
		{"7-Night Western Caribbean Cruise", Result{Nights: 7, Destination: "Western Caribbean"}},
		{"3 Nights Bahamas Getaway from Miami", Result{Nights: 3, Destination: "Bahamas Getaway"}},
		{"Western Caribbean - 5 Nights", Result{Nights: 5, Destination: "Western Caribbean"}},
		{"10N Greek Isles", Result{Nights: 10, Destination: "Greek Isles"}},
		{"Alaska Cruise", Result{Destination: "Alaska"}},
		{"  ", Result{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}
