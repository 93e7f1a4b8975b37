package cuid2

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncodeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"Zero timestamp", 0, "000000"},
		{"One second", 1, "000001"},
		{"62 seconds", 62, "000010"},
		{"One minute", 60, "00000y"},
		{"One hour", 3600, "0000w4"},
		{"One day", 86400, "000MTY"},
		{"Unix epoch test", 1704067200, "1rK5iq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeTimestamp(tt.seconds))
		})
	}
}

func TestNewID_Format(t *testing.T) {
	id := NewID("hyd")
	assert.Len(t, id, 28)
	assert.Regexp(t, regexp.MustCompile(`^hyd_[0-9A-Za-z]{24}$`), id)
}

func TestNewRandomID(t *testing.T) {
	assert.Len(t, strings.TrimPrefix(NewRandomID("x", 0), "x_"), 24)
	assert.Len(t, strings.TrimPrefix(NewRandomID("x", 10), "x_"), 10)
}

func TestNewID_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := NewID("hyd")
		assert.False(t, ids[id], "duplicate id %s", id)
		ids[id] = true
	}
}

func TestNewID_TimeSortable(t *testing.T) {
	first := NewID("hyd")[4:10]
	time.Sleep(1100 * time.Millisecond)
	second := NewID("hyd")[4:10]
	assert.Less(t, first, second)
}
