package garmin

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"gcexport/pkg/errors"
	"gcexport/pkg/models"
	"gcexport/pkg/session"
)

// displayNamePattern matches the display name embedded in the profile page,
// where the viewer profile is serialized as an escaped JSON string.
var displayNamePattern = regexp.MustCompile(`\\?"displayName\\?"\s*:\s*\\?"([-.\w]+)\\?"`)

// Modern is the activitylist-service revision of the web contract
type Modern struct {
	endpoints Endpoints
}

func (m *Modern) Name() string { return ProtocolModern }

func (m *Modern) LoginURL() string { return loginURL(m.endpoints) }

func (m *Modern) CredentialForm(username, password string) url.Values {
	return credentialForm(username, password)
}

func (m *Modern) TicketCookieURL() string { return m.endpoints.SSO + "/sso" }

func (m *Modern) PostAuthURL(ticket string) string {
	return m.endpoints.Connect + "/modern/activities?ticket=" + url.QueryEscape(ticket)
}

func (m *Modern) SearchURL(start, limit int) string {
	return m.endpoints.Connect + "/modern/proxy/activitylist-service/activities/search/activities?" + searchQuery(start, limit)
}

// ParsePage reads a JSON array of activities. Missing optional fields are
// left nil; the payload never carries a total.
func (m *Modern) ParsePage(body []byte) (Page, error) {
	if !gjson.ValidBytes(body) {
		return Page{}, errors.Parsing("activity search", fmt.Errorf("invalid JSON"))
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return Page{}, errors.Parsing("activity search", fmt.Errorf("expected an array of activities"))
	}

	var page Page
	var parseErr error
	root.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("activityId")
		if !id.Exists() || id.String() == "" {
			parseErr = errors.Parsing("activity search", fmt.Errorf("activity without activityId"))
			return false
		}
		page.Activities = append(page.Activities, models.ActivitySummary{
			ID:        id.String(),
			Name:      item.Get("activityName").String(),
			StartTime: optionalString(item.Get("startTimeLocal")),
			Duration:  optionalFloat(item.Get("duration"), 1),
			Distance:  optionalFloat(item.Get("distance"), 1),
		})
		return true
	})
	if parseErr != nil {
		return Page{}, parseErr
	}
	return page, nil
}

// CountActivities reads the display name from the profile page and asks the
// user statistics service for the lifetime activity count.
func (m *Modern) CountActivities(ctx context.Context, s session.Session) (int, bool, error) {
	profileURL := m.endpoints.Connect + "/modern/profile"
	profile, err := s.Get(ctx, profileURL)
	if err != nil {
		return 0, false, fmt.Errorf("fetching profile: %w", err)
	}
	match := displayNamePattern.FindSubmatch(profile)
	if match == nil {
		return 0, false, errors.Parsing(profileURL, fmt.Errorf("display name not found"))
	}

	statsURL := m.endpoints.Connect + "/modern/proxy/userstats-service/statistics/" + url.PathEscape(string(match[1]))
	stats, err := s.Get(ctx, statsURL)
	if err != nil {
		return 0, false, fmt.Errorf("fetching user statistics: %w", err)
	}
	total := gjson.GetBytes(stats, "userMetrics.0.totalActivities")
	if !total.Exists() {
		return 0, false, errors.Parsing(statsURL, fmt.Errorf("totalActivities missing"))
	}
	return int(total.Int()), true, nil
}

func (m *Modern) DownloadURL(activityID string, format models.Format) (string, error) {
	base := m.endpoints.Connect + "/modern/proxy/download-service/export/"
	switch format {
	case models.FormatGPX:
		return base + "gpx/activity/" + url.PathEscape(activityID) + "?full=true", nil
	case models.FormatTCX:
		return base + "tcx/activity/" + url.PathEscape(activityID) + "?full=true", nil
	case models.FormatOriginal:
		return originalURL(m.endpoints, activityID), nil
	default:
		return "", errors.UnrecognizedFormat(string(format))
	}
}

func optionalString(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}

func optionalFloat(r gjson.Result, scale float64) *float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if r.Type == gjson.String {
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return nil
		}
		f *= scale
		return &f
	}
	if r.Type != gjson.Number {
		return nil
	}
	f := r.Float() * scale
	return &f
}
