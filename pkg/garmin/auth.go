package garmin

import (
	"context"
	"regexp"
	"strings"

	"gcexport/pkg/errors"
	"gcexport/pkg/logger"
	"gcexport/pkg/session"
)

// State is a step of the login handshake
type State int

const (
	StateUnauthenticated State = iota
	StateCookiePrimed
	StateSubmitted
	StateTicketed
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateCookiePrimed:
		return "cookie-primed"
	case StateSubmitted:
		return "submitted"
	case StateTicketed:
		return "ticketed"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ticketPattern matches the redirect script the SSO widget embeds on success
var ticketPattern = regexp.MustCompile(`\?ticket=([-\w]+)";`)

const ticketCookie = "CASTGC"

// Authenticator drives the SSO handshake that turns credentials into
// session cookies. It is single use: a failed login is not retried.
type Authenticator struct {
	session  session.Session
	protocol Protocol
	logger   logger.Logger
	state    State
}

// NewAuthenticator creates an authenticator in the unauthenticated state
func NewAuthenticator(s session.Session, p Protocol, log logger.Logger) *Authenticator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Authenticator{
		session:  s,
		protocol: p,
		logger:   log.WithField("component", "auth"),
	}
}

// State returns the current handshake step
func (a *Authenticator) State() State {
	return a.state
}

// Login runs the handshake to completion. Any failure leaves the
// authenticator in StateFailed and returns an auth error.
func (a *Authenticator) Login(ctx context.Context, username, password string) error {
	if a.state != StateUnauthenticated {
		return errors.Auth("login already attempted (state "+a.state.String()+")", nil)
	}

	loginURL := a.protocol.LoginURL()

	if _, err := a.session.Get(ctx, loginURL); err != nil {
		return a.fail("could not load the login page", err)
	}
	a.advance(StateCookiePrimed)

	body, err := a.session.PostForm(ctx, loginURL, a.protocol.CredentialForm(username, password))
	if err != nil {
		return a.fail("credential submission failed", err)
	}
	a.advance(StateSubmitted)

	ticket, source := a.extractTicket(body)
	if ticket == "" {
		return a.fail("no ticket in the login response, check the username and password", nil)
	}
	a.logger.WithField("source", source).Debug("Login ticket extracted")
	a.advance(StateTicketed)

	if _, err := a.session.Get(ctx, a.protocol.PostAuthURL(ticket)); err != nil {
		return a.fail("post-auth request failed", err)
	}
	a.session.MarkAuthenticated()
	a.advance(StateAuthenticated)

	return nil
}

// extractTicket tries the embedded redirect first, then the CASTGC cookie
func (a *Authenticator) extractTicket(body []byte) (ticket, source string) {
	if t := ExtractTicket(body); t != "" {
		return t, "response"
	}
	if v, ok := a.session.Cookie(a.protocol.TicketCookieURL(), ticketCookie); ok {
		if t := TicketFromCookie(v); t != "" {
			return t, "cookie"
		}
	}
	return "", ""
}

// ExtractTicket returns the ticket of a `?ticket=<value>";` fragment, or ""
func ExtractTicket(body []byte) string {
	m := ticketPattern.FindSubmatch(body)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// TicketFromCookie turns a CASTGC value "TGT-<rest>" into the service ticket "ST-0<rest>"
func TicketFromCookie(value string) string {
	rest, ok := strings.CutPrefix(value, "TGT-")
	if !ok || rest == "" {
		return ""
	}
	return "ST-0" + rest
}

func (a *Authenticator) advance(s State) {
	a.logger.WithField("state", s.String()).Debug("Login state changed")
	a.state = s
}

func (a *Authenticator) fail(message string, err error) error {
	a.logger.WithError(err).WithField("from", a.state.String()).Warn("Login failed")
	a.state = StateFailed
	return errors.Auth(message, err)
}
