package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brequin/catalog/db"
)

func TestParseCredits(t *testing.T) {
	tests := []struct {
		text string
		want db.Credits
	}{
		{"3.000", db.Credits{Type: db.CreditsFixed, Values: []float64{3}}},
		{"3.000 OR 4.000", db.Credits{Type: db.CreditsFixed, Values: []float64{3, 4}}},
		{"1.000 TO 6.000", db.Credits{Type: db.CreditsRange, Min: 1, Max: 6}},
		{"0.000 TO 3.000 OR 5.000", db.Credits{Type: db.CreditsRange, Min: 0, Max: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseCredits(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCreditsErrors(t *testing.T) {
	for _, text := range []string{"", "three", "3.000 TO", "3.000 AND 4.000"} {
		_, err := ParseCredits(text)
		assert.ErrorIs(t, err, ErrMalformedCredits, text)
	}
}
