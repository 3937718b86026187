package garmin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcexport/internal/fakeconnect"
	"gcexport/pkg/errors"
	"gcexport/pkg/logger"
	"gcexport/pkg/session"
)

func newSession(t *testing.T) *session.Client {
	t.Helper()
	s, err := session.NewClient(session.Options{UserAgent: "Mozilla/5.0 test"}, logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func newProtocol(t *testing.T, name string, fake *fakeconnect.Server) Protocol {
	t.Helper()
	p, err := New(name, Endpoints{SSO: fake.URL, Connect: fake.URL + "/"})
	require.NoError(t, err)
	return p
}

func TestExtractTicket(t *testing.T) {
	body := []byte(`<script>var response_url = "https://connect.garmin.com/post-auth/login?ticket=ABC-123";</script>`)
	assert.Equal(t, "ABC-123", ExtractTicket(body))

	assert.Equal(t, "", ExtractTicket([]byte(`<div>Invalid sign in.</div>`)))
	assert.Equal(t, "", ExtractTicket([]byte(`?ticket=ABC-123`)), "fragment must be closed by the script quote")
}

func TestTicketFromCookie(t *testing.T) {
	assert.Equal(t, "ST-0123-abc", TicketFromCookie("TGT-123-abc"))
	assert.Equal(t, "", TicketFromCookie("TGT-"))
	assert.Equal(t, "", TicketFromCookie("XYZ-123"))
	assert.Equal(t, "", TicketFromCookie(""))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		mode     fakeconnect.TicketMode
	}{
		{"modern ticket in body", ProtocolModern, fakeconnect.TicketInBody},
		{"modern ticket in cookie", ProtocolModern, fakeconnect.TicketInCookie},
		{"legacy ticket in body", ProtocolLegacy, fakeconnect.TicketInBody},
		{"legacy ticket in cookie", ProtocolLegacy, fakeconnect.TicketInCookie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := fakeconnect.New(fakeconnect.Options{TicketMode: tt.mode})
			defer fake.Close()

			s := newSession(t)
			log := logger.NewTestLogger()
			a := NewAuthenticator(s, newProtocol(t, tt.protocol, fake), log)
			assert.Equal(t, StateUnauthenticated, a.State())

			err := a.Login(context.Background(), "runner@example.com", "hunter2")
			require.NoError(t, err)
			assert.Equal(t, StateAuthenticated, a.State())
			assert.True(t, s.Authenticated())

			// the session cookie from post-auth opens the catalog
			_, err = s.Get(context.Background(), fake.URL+"/modern/profile")
			assert.NoError(t, err)

			var states []interface{}
			for _, m := range log.GetMessages() {
				if m.Message == "Login state changed" {
					states = append(states, m.Fields["state"])
				}
			}
			assert.Equal(t, []interface{}{"cookie-primed", "submitted", "ticketed", "authenticated"}, states)
		})
	}
}

func TestLoginNoTicket(t *testing.T) {
	fake := fakeconnect.New(fakeconnect.Options{TicketMode: fakeconnect.TicketNone})
	defer fake.Close()

	s := newSession(t)
	a := NewAuthenticator(s, newProtocol(t, ProtocolModern, fake), nil)

	err := a.Login(context.Background(), "runner@example.com", "hunter2")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
	assert.Contains(t, err.Error(), "no ticket")
	assert.Equal(t, StateFailed, a.State())
	assert.False(t, s.Authenticated())
}

func TestLoginWrongPassword(t *testing.T) {
	fake := fakeconnect.New(fakeconnect.Options{})
	defer fake.Close()

	a := NewAuthenticator(newSession(t), newProtocol(t, ProtocolModern, fake), nil)
	err := a.Login(context.Background(), "runner@example.com", "wrong")

	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
	assert.Equal(t, StateFailed, a.State())
}

func TestLoginTransportFailure(t *testing.T) {
	fake := fakeconnect.New(fakeconnect.Options{})
	p := newProtocol(t, ProtocolModern, fake)
	fake.Close()

	a := NewAuthenticator(newSession(t), p, nil)
	err := a.Login(context.Background(), "runner@example.com", "hunter2")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
	assert.Equal(t, StateFailed, a.State())
}

func TestLoginIsSingleUse(t *testing.T) {
	fake := fakeconnect.New(fakeconnect.Options{TicketMode: fakeconnect.TicketNone})
	defer fake.Close()

	a := NewAuthenticator(newSession(t), newProtocol(t, ProtocolModern, fake), nil)
	require.Error(t, a.Login(context.Background(), "runner@example.com", "hunter2"))

	before := fake.RequestCount()
	err := a.Login(context.Background(), "runner@example.com", "hunter2")
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
	assert.Equal(t, before, fake.RequestCount(), "no retry after a failed handshake")
}
