package models

import (
	"testing"

	"gcexport/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    Count
		wantErr bool
	}{
		{in: "1", want: Count{Kind: CountNumber, N: 1}},
		{in: "250", want: Count{Kind: CountNumber, N: 250}},
		{in: "all", want: Count{Kind: CountAll}},
		{in: "NEW", want: Count{Kind: CountNew}},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "some", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountString(t *testing.T) {
	assert.Equal(t, "all", Count{Kind: CountAll}.String())
	assert.Equal(t, "new", Count{Kind: CountNew}.String())
	assert.Equal(t, "42", Count{N: 42}.String())
	assert.True(t, Count{Kind: CountNew}.IsNew())
	assert.False(t, Count{Kind: CountAll}.IsNew())
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseFormat("fit")
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnrecognizedFormat))
}
