package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		sep  rune
		want string
	}{
		{"spaces", "One Piece Colored 5", '-', "one-piece-colored-5"},
		{"underscore", "One Piece Colored 5", '_', "one_piece_colored_5"},
		{"accents", "Café  Noël!", '-', "cafe-noel"},
		{"punctuation", "  --Dr. Stone: Vol 2--", '_', "dr_stone_vol_2"},
		{"han", "海賊王 1", '-', "海賊王-1"},
		{"empty", "", '-', ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in, tt.sep))
		})
	}
}
