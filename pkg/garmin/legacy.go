package garmin

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"gcexport/pkg/errors"
	"gcexport/pkg/models"
	"gcexport/pkg/session"
)

// Legacy is the activity-search-service-1.2 revision of the web contract.
// Its search payload wraps every activity and reports totalFound.
type Legacy struct {
	endpoints Endpoints
}

func (l *Legacy) Name() string { return ProtocolLegacy }

func (l *Legacy) LoginURL() string { return loginURL(l.endpoints) }

func (l *Legacy) CredentialForm(username, password string) url.Values {
	return credentialForm(username, password)
}

func (l *Legacy) TicketCookieURL() string { return l.endpoints.SSO + "/sso" }

func (l *Legacy) PostAuthURL(ticket string) string {
	return l.endpoints.Connect + "/post-auth/login?ticket=" + url.QueryEscape(ticket)
}

func (l *Legacy) SearchURL(start, limit int) string {
	return l.endpoints.Connect + "/proxy/activity-search-service-1.2/json/activities?" + searchQuery(start, limit)
}

// ParsePage reads {"results":{"totalFound":N,"activities":[{"activity":{...}}]}}.
// Display values are nested under "value"/"display"; distance is reported in
// kilometres and converted to meters.
func (l *Legacy) ParsePage(body []byte) (Page, error) {
	if !gjson.ValidBytes(body) {
		return Page{}, errors.Parsing("activity search", fmt.Errorf("invalid JSON"))
	}
	results := gjson.GetBytes(body, "results")
	if !results.IsObject() {
		return Page{}, errors.Parsing("activity search", fmt.Errorf("results object missing"))
	}

	var page Page
	if total := results.Get("totalFound"); total.Exists() {
		page.Total = int(total.Int())
		page.HasTotal = true
	}

	var parseErr error
	results.Get("activities").ForEach(func(_, wrapper gjson.Result) bool {
		a := wrapper.Get("activity")
		id := a.Get("activityId")
		if !id.Exists() || id.String() == "" {
			parseErr = errors.Parsing("activity search", fmt.Errorf("activity without activityId"))
			return false
		}
		page.Activities = append(page.Activities, models.ActivitySummary{
			ID:        id.String(),
			Name:      legacyText(a.Get("activityName")),
			StartTime: optionalString(a.Get("beginTimestamp.display")),
			Duration:  optionalFloat(a.Get("sumElapsedDuration.value"), 1),
			Distance:  optionalFloat(a.Get("sumDistance.value"), 1000),
		})
		return true
	})
	if parseErr != nil {
		return Page{}, parseErr
	}
	return page, nil
}

// CountActivities has no out of band lookup; the first search page reports the total.
func (l *Legacy) CountActivities(context.Context, session.Session) (int, bool, error) {
	return 0, false, nil
}

func (l *Legacy) DownloadURL(activityID string, format models.Format) (string, error) {
	base := l.endpoints.Connect + "/proxy/activity-service-1.1/"
	switch format {
	case models.FormatGPX:
		return base + "gpx/activity/" + url.PathEscape(activityID) + "?full=true", nil
	case models.FormatTCX:
		return base + "tcx/activity/" + url.PathEscape(activityID) + "?full=true", nil
	case models.FormatOriginal:
		return originalURL(l.endpoints, activityID), nil
	default:
		return "", errors.UnrecognizedFormat(string(format))
	}
}

// legacyText accepts both {"value": "..."} and a bare string
func legacyText(r gjson.Result) string {
	if r.IsObject() {
		return r.Get("value").String()
	}
	return r.String()
}
