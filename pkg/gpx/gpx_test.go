package gpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasTrackPoints(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{
			name: "track with points",
			data: `<?xml version="1.0"?><gpx xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg><trkpt lat="1" lon="2"/></trkseg></trk></gpx>`,
			want: true,
		},
		{
			name: "indoor activity",
			data: `<?xml version="1.0"?><gpx><trk><name>Treadmill</name><trkseg></trkseg></trk></gpx>`,
			want: false,
		},
		{
			name: "prefixed namespace",
			data: `<g:gpx xmlns:g="http://www.topografix.com/GPX/1/1"><g:trk><g:trkseg><g:trkpt lat="1" lon="2"/></g:trkseg></g:trk></g:gpx>`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HasTrackPoints([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasTrackPointsMalformed(t *testing.T) {
	_, err := HasTrackPoints([]byte(`<gpx><trk>`))
	assert.Error(t, err)

	got, err := HasTrackPoints(nil)
	assert.NoError(t, err)
	assert.False(t, got)
}
