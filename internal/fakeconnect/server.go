// Package fakeconnect serves a scripted stand-in for the Garmin Connect SSO
// and activity endpoints, for tests that drive the exporter end to end.
package fakeconnect

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// TicketMode selects how a successful credential POST hands out the ticket
type TicketMode int

const (
	// TicketInBody embeds `?ticket=<Ticket>";` in the response script
	TicketInBody TicketMode = iota
	// TicketInCookie sets CASTGC=<TGT> and leaves the body without a ticket
	TicketInCookie
	// TicketNone returns neither
	TicketNone
)

const (
	sessionCookie = "SESSIONID"
	primeCookie   = "GARMIN-SSO-GUID"
)

// Activity is one entry of the fake catalog. Zero optional fields are omitted
// from search payloads.
type Activity struct {
	ID        int64
	Name      string
	StartTime string
	Duration  float64 // seconds
	Distance  float64 // meters
	Indoor    bool    // GPX export has no track points
}

// SearchCall records the paging parameters of one search request
type SearchCall struct {
	Path  string
	Start int
	Limit int
}

// Options configures a Server
type Options struct {
	Username    string
	Password    string
	Ticket      string // service ticket for TicketInBody
	TGT         string // CASTGC value for TicketInCookie
	TicketMode  TicketMode
	DisplayName string
	Activities  []Activity // newest first
}

// Server is a running fake. SSO and Connect share one host.
type Server struct {
	*httptest.Server

	opts     Options
	mu       sync.Mutex
	statuses map[string]int
	searches []SearchCall
	fetches  []string
	requests int32
}

// New starts a fake with sensible defaults for unset options
func New(opts Options) *Server {
	if opts.Username == "" {
		opts.Username = "runner@example.com"
	}
	if opts.Password == "" {
		opts.Password = "hunter2"
	}
	if opts.Ticket == "" {
		opts.Ticket = "ST-1234-abcdef-cas"
	}
	if opts.TGT == "" {
		opts.TGT = "TGT-98765-sso"
	}
	if opts.DisplayName == "" {
		opts.DisplayName = "runner42"
	}

	s := &Server{opts: opts, statuses: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sso/login", s.handleLoginPage)
	mux.HandleFunc("POST /sso/login", s.handleCredentials)
	mux.HandleFunc("GET /modern/activities", s.handlePostAuth)
	mux.HandleFunc("GET /post-auth/login", s.handlePostAuth)

	mux.HandleFunc("GET /modern/proxy/activitylist-service/activities/search/activities", s.authorized(s.handleModernSearch))
	mux.HandleFunc("GET /proxy/activity-search-service-1.2/json/activities", s.authorized(s.handleLegacySearch))
	mux.HandleFunc("GET /modern/profile", s.authorized(s.handleProfile))
	mux.HandleFunc("GET /modern/proxy/userstats-service/statistics/{name}", s.authorized(s.handleStats))

	mux.HandleFunc("GET /modern/proxy/download-service/export/{format}/activity/{id}", s.authorized(s.handleExport))
	mux.HandleFunc("GET /proxy/activity-service-1.1/{format}/activity/{id}", s.authorized(s.handleExport))
	mux.HandleFunc("GET /proxy/download-service/files/activity/{id}", s.authorized(s.handleOriginal))

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requests, 1)
		mux.ServeHTTP(w, r)
	}))
	return s
}

// AcceptedTicket is the ticket the post-auth endpoint accepts
func (s *Server) AcceptedTicket() string {
	if s.opts.TicketMode == TicketInCookie {
		return "ST-0" + strings.TrimPrefix(s.opts.TGT, "TGT-")
	}
	return s.opts.Ticket
}

// SetStatus makes downloads of one activity in one format ("gpx", "tcx",
// "original") answer with code
func (s *Server) SetStatus(format string, id int64, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[statusKey(format, strconv.FormatInt(id, 10))] = code
}

// Searches returns the search requests seen so far
func (s *Server) Searches() []SearchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SearchCall(nil), s.searches...)
}

// Fetches returns the activity download paths requested so far
func (s *Server) Fetches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetches...)
}

// RequestCount returns the total number of requests served
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requests))
}

// Reset clears the recorded calls
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = nil
	s.fetches = nil
	atomic.StoreInt32(&s.requests, 0)
}

// GPX returns the body served for a gpx export of a
func GPX(a Activity) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.1" creator="Garmin Connect" xmlns="http://www.topografix.com/GPX/1/1"><trk>`)
	fmt.Fprintf(&b, "<name>%s</name><trkseg>", a.Name)
	if !a.Indoor {
		b.WriteString(`<trkpt lat="52.5200" lon="13.4050"><ele>34.0</ele></trkpt>`)
		b.WriteString(`<trkpt lat="52.5201" lon="13.4052"><ele>34.2</ele></trkpt>`)
	}
	b.WriteString("</trkseg></trk></gpx>\n")
	return []byte(b.String())
}

// TCX returns the body served for a tcx export of a
func TCX(a Activity) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase><Activities><Activity Sport="Running"><Id>%d</Id></Activity></Activities></TrainingCenterDatabase>
`, a.ID))
}

// FITName is the entry stored in the original archive of id
func FITName(id int64) string {
	return fmt.Sprintf("%d.fit", id)
}

// Original returns the zip archive served as the original upload of a
func Original(a Activity) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(FITName(a.ID))
	if err == nil {
		fmt.Fprintf(w, "FIT-%d", a.ID)
	}
	zw.Close()
	return buf.Bytes()
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("clientId") != "GarminConnect" {
		http.Error(w, "unknown client", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: primeCookie, Value: "primed", Path: "/"})
	fmt.Fprint(w, `<html><body><form method="post"><input name="username"/><input name="password"/></form></body></html>`)
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(primeCookie); err != nil {
		http.Error(w, "missing sso cookie", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("_eventId") != "submit" || r.PostForm.Get("lt") != "e1s1" {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	ok := r.PostForm.Get("username") == s.opts.Username && r.PostForm.Get("password") == s.opts.Password
	if !ok || s.opts.TicketMode == TicketNone {
		fmt.Fprint(w, `<html><body><div id="status">Invalid sign in.</div></body></html>`)
		return
	}

	switch s.opts.TicketMode {
	case TicketInCookie:
		http.SetCookie(w, &http.Cookie{Name: "CASTGC", Value: s.opts.TGT, Path: "/sso"})
		fmt.Fprint(w, `<html><body><script>var redirectAfterAccountLoginUrl = "";</script></body></html>`)
	default:
		fmt.Fprintf(w, `<html><script type="text/javascript">
var response_url = "https://connect.garmin.com/post-auth/login?ticket=%s";
</script></html>`, s.opts.Ticket)
	}
}

func (s *Server) handlePostAuth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("ticket") != s.AcceptedTicket() {
		http.Error(w, "invalid ticket", http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "authenticated", Path: "/"})
	fmt.Fprint(w, "<html>activities</html>")
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			http.Error(w, "not signed in", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// page records the search and returns the requested window of the catalog
func (s *Server) page(w http.ResponseWriter, r *http.Request) ([]Activity, bool) {
	start, err1 := strconv.Atoi(r.URL.Query().Get("start"))
	limit, err2 := strconv.Atoi(r.URL.Query().Get("limit"))
	if err1 != nil || err2 != nil || start < 0 || limit < 1 {
		http.Error(w, "bad paging parameters", http.StatusBadRequest)
		return nil, false
	}

	s.mu.Lock()
	s.searches = append(s.searches, SearchCall{Path: r.URL.Path, Start: start, Limit: limit})
	s.mu.Unlock()

	if limit > 100 {
		http.Error(w, "limit too large", http.StatusBadRequest)
		return nil, false
	}

	all := s.opts.Activities
	if start >= len(all) {
		return nil, true
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], true
}

func (s *Server) handleModernSearch(w http.ResponseWriter, r *http.Request) {
	acts, ok := s.page(w, r)
	if !ok {
		return
	}
	out := make([]map[string]interface{}, 0, len(acts))
	for _, a := range acts {
		m := map[string]interface{}{"activityId": a.ID, "activityName": a.Name}
		if a.StartTime != "" {
			m["startTimeLocal"] = a.StartTime
		}
		if a.Duration != 0 {
			m["duration"] = a.Duration
		}
		if a.Distance != 0 {
			m["distance"] = a.Distance
		}
		out = append(out, m)
	}
	writeJSON(w, out)
}

func (s *Server) handleLegacySearch(w http.ResponseWriter, r *http.Request) {
	acts, ok := s.page(w, r)
	if !ok {
		return
	}
	wrapped := make([]map[string]interface{}, 0, len(acts))
	for _, a := range acts {
		m := map[string]interface{}{
			"activityId":   a.ID,
			"activityName": map[string]string{"value": a.Name},
		}
		if a.StartTime != "" {
			m["beginTimestamp"] = map[string]string{"display": a.StartTime}
		}
		if a.Duration != 0 {
			m["sumElapsedDuration"] = map[string]string{"value": strconv.FormatFloat(a.Duration, 'f', 1, 64), "uom": "second"}
		}
		if a.Distance != 0 {
			m["sumDistance"] = map[string]string{"value": strconv.FormatFloat(a.Distance/1000, 'f', 3, 64), "uom": "kilometer"}
		}
		wrapped = append(wrapped, map[string]interface{}{"activity": m})
	}
	writeJSON(w, map[string]interface{}{
		"results": map[string]interface{}{
			"totalFound": len(s.opts.Activities),
			"activities": wrapped,
		},
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `<html><script>window.VIEWER_SOCIAL_PROFILE = JSON.parse("{\"displayName\":\"%s\",\"userName\":\"%s\"}");</script></html>`,
		s.opts.DisplayName, s.opts.Username)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("name") != s.opts.DisplayName {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]interface{}{
		"userMetrics": []map[string]interface{}{{"totalActivities": len(s.opts.Activities)}},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	a, ok := s.lookup(w, r, format, r.PathValue("id"))
	if !ok {
		return
	}
	switch format {
	case "gpx":
		w.Header().Set("Content-Type", "application/gpx+xml")
		w.Write(GPX(a))
	case "tcx":
		w.Header().Set("Content-Type", "application/vnd.garmin.tcx+xml")
		w.Write(TCX(a))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r, "original", r.PathValue("id"))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/x-zip-compressed")
	w.Write(Original(a))
}

// lookup records the fetch, applies configured statuses and finds the activity
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, format, id string) (Activity, bool) {
	s.mu.Lock()
	s.fetches = append(s.fetches, r.URL.Path)
	code := s.statuses[statusKey(format, id)]
	s.mu.Unlock()

	if code != 0 {
		http.Error(w, http.StatusText(code), code)
		return Activity{}, false
	}
	for _, a := range s.opts.Activities {
		if strconv.FormatInt(a.ID, 10) == id {
			return a, true
		}
	}
	http.NotFound(w, r)
	return Activity{}, false
}

func statusKey(format, id string) string {
	return format + "/" + id
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// Catalog builds n activities with descending ids starting at newest
func Catalog(n int, newest int64) []Activity {
	acts := make([]Activity, n)
	for i := range acts {
		id := newest - int64(i)
		acts[i] = Activity{
			ID:        id,
			Name:      fmt.Sprintf("Morning Run %d", id),
			StartTime: fmt.Sprintf("2024-05-%02d 07:%02d:00", 1+i%28, i%60),
			Duration:  1800 + float64(i),
			Distance:  5000 + float64(i)*10,
		}
	}
	return acts
}
