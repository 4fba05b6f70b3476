package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	tests := []struct {
		in   string
		want string
	}{
		{LevelDebug, "debug"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LevelInfo, "info"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		SetLevel(tt.in)
		assert.Equal(t, tt.want, Level(), "SetLevel(%q)", tt.in)
	}
}
