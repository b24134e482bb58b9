package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Karayel", "KARAYEL"},
		{"  şahin   bey ", "SAHIN BEY"},
		{"Gümüşhane Çiçeği", "GUMUSHANE CICEGI"},
		{"İstanbul Ilık", "ISTANBUL ILIK"},
		{"Öğretmen", "OGRETMEN"},
		{"Café Olé", "CAFE OLE"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}
