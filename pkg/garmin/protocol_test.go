package garmin

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcexport/pkg/errors"
	"gcexport/pkg/models"
)

var testEndpoints = Endpoints{SSO: "https://sso.garmin.com", Connect: "https://connect.garmin.com"}

func TestNew(t *testing.T) {
	p, err := New("", testEndpoints)
	require.NoError(t, err)
	assert.Equal(t, ProtocolModern, p.Name())

	p, err = New("LEGACY", testEndpoints)
	require.NoError(t, err)
	assert.Equal(t, ProtocolLegacy, p.Name())

	_, err = New("v3", testEndpoints)
	assert.Error(t, err)
}

func TestLoginURLCarriesWidgetParameters(t *testing.T) {
	p, _ := New(ProtocolModern, testEndpoints)

	u, err := url.Parse(p.LoginURL())
	require.NoError(t, err)
	assert.Equal(t, "sso.garmin.com", u.Host)
	assert.Equal(t, "/sso/login", u.Path)

	q := u.Query()
	assert.Equal(t, "https://connect.garmin.com/post-auth/login", q.Get("service"))
	assert.Equal(t, "https://sso.garmin.com/sso", q.Get("gauthHost"))
	assert.Equal(t, "gauth-widget", q.Get("id"))
	assert.Equal(t, "GarminConnect", q.Get("clientId"))
	assert.Equal(t, "en_US", q.Get("locale"))
	assert.Len(t, q, 20)

	form := p.CredentialForm("me", "secret")
	assert.Equal(t, "me", form.Get("username"))
	assert.Equal(t, "secret", form.Get("password"))
	assert.Equal(t, "true", form.Get("embed"))
	assert.Equal(t, "e1s1", form.Get("lt"))
	assert.Equal(t, "submit", form.Get("_eventId"))
	assert.Equal(t, "false", form.Get("displayNameRequired"))
}

func TestDownloadURLs(t *testing.T) {
	modern, _ := New(ProtocolModern, testEndpoints)
	legacy, _ := New(ProtocolLegacy, testEndpoints)

	tests := []struct {
		p      Protocol
		format models.Format
		want   string
	}{
		{modern, models.FormatGPX, "https://connect.garmin.com/modern/proxy/download-service/export/gpx/activity/12345?full=true"},
		{modern, models.FormatTCX, "https://connect.garmin.com/modern/proxy/download-service/export/tcx/activity/12345?full=true"},
		{modern, models.FormatOriginal, "https://connect.garmin.com/proxy/download-service/files/activity/12345"},
		{legacy, models.FormatGPX, "https://connect.garmin.com/proxy/activity-service-1.1/gpx/activity/12345?full=true"},
		{legacy, models.FormatTCX, "https://connect.garmin.com/proxy/activity-service-1.1/tcx/activity/12345?full=true"},
		{legacy, models.FormatOriginal, "https://connect.garmin.com/proxy/download-service/files/activity/12345"},
	}
	for _, tt := range tests {
		t.Run(tt.p.Name()+"/"+string(tt.format), func(t *testing.T) {
			got, err := tt.p.DownloadURL("12345", tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := modern.DownloadURL("12345", models.Format("fit"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnrecognizedFormat))
}

func TestSearchURLs(t *testing.T) {
	modern, _ := New(ProtocolModern, testEndpoints)
	legacy, _ := New(ProtocolLegacy, testEndpoints)

	assert.Equal(t,
		"https://connect.garmin.com/modern/proxy/activitylist-service/activities/search/activities?limit=100&start=200",
		modern.SearchURL(200, 100))
	assert.Equal(t,
		"https://connect.garmin.com/proxy/activity-search-service-1.2/json/activities?limit=1&start=0",
		legacy.SearchURL(0, 1))
	assert.True(t, strings.HasSuffix(modern.PostAuthURL("ST-0abc"), "/modern/activities?ticket=ST-0abc"))
	assert.True(t, strings.HasSuffix(legacy.PostAuthURL("ST-0abc"), "/post-auth/login?ticket=ST-0abc"))
}

func TestModernParsePageToleratesMissingFields(t *testing.T) {
	body := []byte(`[
		{"activityId": 9001, "activityName": "Lunch Ride", "startTimeLocal": "2024-05-01 12:00:00", "duration": 3723.5, "distance": 25400.0},
		{"activityId": 9000, "activityName": "Yoga"},
		{"activityId": 8999, "activityName": "Swim", "duration": null, "distance": "1500"}
	]`)

	page, err := (&Modern{}).ParsePage(body)
	require.NoError(t, err)
	require.Len(t, page.Activities, 3)
	assert.False(t, page.HasTotal)

	full := page.Activities[0]
	assert.Equal(t, "9001", full.ID)
	require.NotNil(t, full.StartTime)
	assert.Equal(t, "2024-05-01 12:00:00", *full.StartTime)
	assert.InDelta(t, 3723.5, *full.Duration, 0.0001)
	assert.InDelta(t, 25400, *full.Distance, 0.0001)

	bare := page.Activities[1]
	assert.Nil(t, bare.StartTime)
	assert.Nil(t, bare.Duration)
	assert.Nil(t, bare.Distance)

	assert.Nil(t, page.Activities[2].Duration)
	require.NotNil(t, page.Activities[2].Distance)
	assert.InDelta(t, 1500, *page.Activities[2].Distance, 0.0001)
}

func TestModernParsePageErrors(t *testing.T) {
	for name, body := range map[string]string{
		"invalid json": `[{"activityId":`,
		"not an array": `{"activityId": 1}`,
		"missing id":   `[{"activityName": "x"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := (&Modern{}).ParsePage([]byte(body))
			assert.True(t, errors.IsType(err, errors.ErrorTypeParsing))
		})
	}

	page, err := (&Modern{}).ParsePage([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, page.Activities)
}

func TestLegacyParsePage(t *testing.T) {
	body := []byte(`{"results": {
		"totalFound": 412,
		"activities": [
			{"activity": {
				"activityId": "5550001",
				"activityName": {"value": "Evening Run"},
				"beginTimestamp": {"display": "Wed, 1 May 2024 18:30"},
				"sumElapsedDuration": {"value": "2712.0", "uom": "second"},
				"sumDistance": {"value": "8.125", "uom": "kilometer"}
			}},
			{"activity": {"activityId": 5550000, "activityName": "Untitled"}}
		]
	}}`)

	page, err := (&Legacy{}).ParsePage(body)
	require.NoError(t, err)
	assert.True(t, page.HasTotal)
	assert.Equal(t, 412, page.Total)
	require.Len(t, page.Activities, 2)

	a := page.Activities[0]
	assert.Equal(t, "5550001", a.ID)
	assert.Equal(t, "Evening Run", a.Name)
	assert.Equal(t, "Wed, 1 May 2024 18:30", *a.StartTime)
	assert.InDelta(t, 2712, *a.Duration, 0.0001)
	assert.InDelta(t, 8125, *a.Distance, 0.0001)

	b := page.Activities[1]
	assert.Equal(t, "5550000", b.ID)
	assert.Equal(t, "Untitled", b.Name)
	assert.Nil(t, b.StartTime)
	assert.Nil(t, b.Duration)
	assert.Nil(t, b.Distance)

	_, err = (&Legacy{}).ParsePage([]byte(`[]`))
	assert.True(t, errors.IsType(err, errors.ErrorTypeParsing))
}
