package garmin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gcexport/pkg/models"
	"gcexport/pkg/session"
)

// Protocol is one revision of the Garmin Connect web contract: endpoint
// paths, response shapes and the way the total activity count is found.
// Pagination, login sequencing and download handling do not depend on it.
type Protocol interface {
	Name() string

	// LoginURL is the SSO login page, queried with the widget parameters
	LoginURL() string
	// CredentialForm is the POST body submitting the user's credentials
	CredentialForm(username, password string) url.Values
	// TicketCookieURL is where the CASTGC cookie is scoped
	TicketCookieURL() string
	// PostAuthURL completes the handshake with the extracted ticket
	PostAuthURL(ticket string) string

	SearchURL(start, limit int) string
	ParsePage(body []byte) (Page, error)
	// CountActivities looks the total up out of band. ok is false when the
	// protocol has no such lookup and the total comes from a search page.
	CountActivities(ctx context.Context, s session.Session) (total int, ok bool, err error)

	DownloadURL(activityID string, format models.Format) (string, error)
}

// Page is one parsed batch of the activity search
type Page struct {
	Activities []models.ActivitySummary
	Total      int  // server reported total, valid when HasTotal
	HasTotal   bool
	Offset     int // start parameter of the request
	Size       int // limit parameter of the request
}

// Endpoints holds the hosts a protocol talks to
type Endpoints struct {
	SSO     string
	Connect string
}

// Protocol names accepted by New
const (
	ProtocolModern = "modern"
	ProtocolLegacy = "legacy"
)

// New returns the protocol registered under name
func New(name string, ep Endpoints) (Protocol, error) {
	ep = Endpoints{
		SSO:     strings.TrimRight(ep.SSO, "/"),
		Connect: strings.TrimRight(ep.Connect, "/"),
	}
	switch strings.ToLower(name) {
	case ProtocolModern, "":
		return &Modern{endpoints: ep}, nil
	case ProtocolLegacy:
		return &Legacy{endpoints: ep}, nil
	default:
		return nil, fmt.Errorf("unknown protocol %q", name)
	}
}

// loginParams is the fixed SSO widget query shared by both revisions
func loginParams(ep Endpoints) url.Values {
	redirect := ep.Connect + "/post-auth/login"
	return url.Values{
		"service":                         {redirect},
		"webhost":                         {ep.Connect},
		"source":                          {ep.Connect + "/en-US/signin"},
		"redirectAfterAccountLoginUrl":    {redirect},
		"redirectAfterAccountCreationUrl": {redirect},
		"gauthHost":                       {ep.SSO + "/sso"},
		"locale":                          {"en_US"},
		"id":                              {"gauth-widget"},
		"cssUrl":                          {"https://static.garmincdn.com/com.garmin.connect/ui/css/gauth-custom-v1.2-min.css"},
		"clientId":                        {"GarminConnect"},
		"rememberMeShown":                 {"true"},
		"rememberMeChecked":               {"false"},
		"createAccountShown":              {"true"},
		"openCreateAccount":               {"false"},
		"usernameShown":                   {"false"},
		"displayNameShown":                {"false"},
		"consumeServiceTicket":            {"false"},
		"initialFocus":                    {"true"},
		"embedWidget":                     {"false"},
		"generateExtraServiceTicket":      {"false"},
	}
}

func loginURL(ep Endpoints) string {
	return ep.SSO + "/sso/login?" + loginParams(ep).Encode()
}

func credentialForm(username, password string) url.Values {
	return url.Values{
		"username":            {username},
		"password":            {password},
		"embed":               {"true"},
		"lt":                  {"e1s1"},
		"_eventId":            {"submit"},
		"displayNameRequired": {"false"},
	}
}

func searchQuery(start, limit int) string {
	return url.Values{
		"start": {fmt.Sprint(start)},
		"limit": {fmt.Sprint(limit)},
	}.Encode()
}

// originalURL is the raw upload endpoint, identical in both revisions
func originalURL(ep Endpoints, activityID string) string {
	return ep.Connect + "/proxy/download-service/files/activity/" + url.PathEscape(activityID)
}
