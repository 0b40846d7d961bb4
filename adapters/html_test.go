package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"empty", "  ", ""},
		{"plain", "Already plain", "Already plain"},
		{"paragraphs", "<p>Soft  wool</p><p>Machine washable</p>", "Soft wool\nMachine washable"},
		{"line breaks", "Line one<br>Line two<br/>", "Line one\nLine two"},
		{"list", "<ul><li>Light</li><li>Warm</li></ul>", "Light\nWarm"},
		{"entities", "<p>Fish &amp; chips</p>", "Fish & chips"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.html))
		})
	}
}
