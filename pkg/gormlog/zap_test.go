package gormlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortCaller(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/Users/alex/repo/internal/platform/db/postgres.go:38", "internal/platform/db/postgres.go:38"},
		{"/home/ci/src/pkg/gormlog/zap.go:12", "pkg/gormlog/zap.go:12"},
		{"/a/b/c/d/e.go:7", "c/d/e.go:7"},
		{"e.go:1", "e.go:1"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, shortCaller(tt.in), tt.in)
	}
}
