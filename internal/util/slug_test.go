package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Moby Dick", "moby-dick"},
		{"Walden (1854)", "walden-1854"},
		{"war_and_peace", "war-and-peace"},
		{"UPPER-CASE", "upper-case"},
		{"  multi   word ", "multi-word"},
		{"--leading--", "leading"},
		{"héllo wörld", "hllo-wrld"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}
