package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotplan/internal/config"
	"slotplan/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Event = "Test Camp"
	cfg.DataDir = t.TempDir()
	cfg.Timezone = "UTC"
	cfg.AdminPassword = "s3cret"
	cfg.ParticipantsEmails = []string{"a@x.com"}

	st, err := store.Open(cfg.DataDir, store.Options{MaxLevel1: cfg.MaxLevel1})
	require.NoError(t, err)

	srv, err := NewServer(cfg, st)
	require.NoError(t, err)
	return srv
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(srv *Server, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return do(srv, req)
}

// login authenticates and returns the session cookie.
func login(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	rec := postForm(srv, "/admin", url.Values{"password": {"s3cret"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHomePage(t *testing.T) {
	srv := newTestServer(t)
	rec := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Slotplan for Test Camp")
	assert.Contains(t, rec.Body.String(), "/submit")
}

func TestSubmitSuccess(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(srv, "/submit", url.Values{
		"first_name":     {"Jane"},
		"last_name":      {"Doe"},
		"email":          {"a@x.com"},
		"twitter_handle": {"janedoe"},
		"title":          {"Go in Anger"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "successfully been saved")

	entries := srv.st.Contributions()
	require.Len(t, entries, 1)
	assert.Equal(t, "0", entries[0].ID)
	assert.Equal(t, "@janedoe", entries[0].TwitterHandle)
}

func TestSubmitRejections(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			"missing first name",
			url.Values{"last_name": {"Doe"}, "email": {"a@x.com"}, "title": {"T"}},
			"Please enter your first name.",
		},
		{
			"bad email",
			url.Values{"first_name": {"J"}, "last_name": {"D"}, "email": {"nope"}, "title": {"T"}},
			"does not look like a valid email address",
		},
		{
			"not signed up",
			url.Values{"first_name": {"J"}, "last_name": {"D"}, "email": {"b@x.com"}, "title": {"T"}},
			"did not sign up for the event",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postForm(srv, "/submit", tc.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.message)
		})
	}

	assert.Empty(t, srv.st.Contributions())
}

func TestAdminRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/admin/plan", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	// State-changing routes are gated the same way.
	rec = postForm(srv, "/admin/dimensions", url.Values{"level1": {"Mon"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	assert.Empty(t, srv.st.Dimensions().Level1())
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(srv, "/admin", url.Values{"password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wrong password.")

	rec = postForm(srv, "/admin", url.Values{"password": {""}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminWorkflow(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	// Replace the slot dimensions through the form, hint lines included.
	rec := postForm(srv, "/admin/dimensions", url.Values{
		"level1":   {"Mon\nTue"},
		"level2_0": {"RoomA\nRoomB"},
		"level3_0": {"09:00\n10:00"},
		"level2_1": {"RoomC"},
		"level3_1": {"11:00"},
		"level2_2": {dimensionHint},
		"level3_2": {dimensionHint},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	set := srv.st.Dimensions()
	require.Equal(t, []string{"Mon", "Tue"}, set.Level1())
	axis, err := set.Level2Axis(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"RoomA", "RoomB"}, axis)

	// Submit and schedule a contribution.
	rec = postForm(srv, "/submit", url.Values{
		"first_name": {"Jane"}, "last_name": {"Doe"},
		"email": {"a@x.com"}, "title": {"Go in Anger"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postForm(srv, "/admin/schedule", url.Values{
		"level1":       {"0"},
		"level2":       {"RoomA"},
		"level3":       {"09:00"},
		"contribution": {"0"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "msg=")

	doc := srv.st.Snapshot()
	assert.Equal(t, "0", doc.Schedule[0][0][0])

	// The public plan shows the scheduled talk.
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/slotplan", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go in Anger")
	assert.Contains(t, rec.Body.String(), `data-ready="true"`)
}

func TestSwapHandler(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	require.NoError(t, srv.st.ReplaceDimensions(
		[]string{"Mon"}, [][]string{{"RoomA", "RoomB"}}, [][]string{{"09:00"}}))
	for i := 0; i < 2; i++ {
		rec := postForm(srv, "/submit", url.Values{
			"first_name": {"Jane"}, "last_name": {"Doe"},
			"email": {"a@x.com"}, "title": {"Talk"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.NoError(t, srv.st.ScheduleByName(0, "RoomA", "09:00", "0"))
	require.NoError(t, srv.st.ScheduleByName(0, "RoomB", "09:00", "1"))

	// Selecting one id is rejected.
	rec := postForm(srv, "/admin/swap", url.Values{"swap_id": {"0"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "err=")

	rec = postForm(srv, "/admin/swap", url.Values{"swap_id": {"0", "1"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "msg=")

	doc := srv.st.Snapshot()
	assert.Equal(t, "1", doc.Schedule[0][0][0])
	assert.Equal(t, "0", doc.Schedule[0][1][0])
}

func TestInfoPage(t *testing.T) {
	srv := newTestServer(t)

	require.NoError(t, srv.st.ReplaceDimensions(
		[]string{"Mon"}, [][]string{{"RoomA", "RoomB"}}, [][]string{{"09:00", "10:00"}}))
	rec := postForm(srv, "/submit", url.Values{
		"first_name": {"Jane"}, "last_name": {"Doe"},
		"email": {"a@x.com"}, "title": {"Go in Anger"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, srv.st.ScheduleByName(0, "RoomA", "10:00", "0"))

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/info/0/0?now=09:30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go in Anger")
	assert.Contains(t, rec.Body.String(), "10:00")

	// Past the last slot there is nothing left.
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/info/0/0?now=10:00", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing more is scheduled")

	// Unknown axes are a 404, not an empty page.
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/info/9/0", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/info/x/0", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestICalFeed(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.EventDates = []string{"2026-09-12"}

	require.NoError(t, srv.st.ReplaceDimensions(
		[]string{"Sat"}, [][]string{{"RoomA"}}, [][]string{{"10:00"}}))
	rec := postForm(srv, "/submit", url.Values{
		"first_name": {"Jane"}, "last_name": {"Doe"},
		"email": {"a@x.com"}, "title": {"Go in Anger"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, srv.st.ScheduleByName(0, "RoomA", "10:00", "0"))

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/slotplan.ics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
	assert.Contains(t, rec.Body.String(), "Go in Anger")
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	rec := postForm(srv, "/admin/logout", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(srv, addCookie(httptest.NewRequest(http.MethodGet, "/admin/plan", nil), cookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestSessionExpiry(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	// Move the session clock past the idle timeout.
	srv.sessions.now = func() time.Time { return time.Now().Add(sessionTTL + time.Minute) }

	rec := do(srv, addCookie(httptest.NewRequest(http.MethodGet, "/admin/plan", nil), cookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func addCookie(req *http.Request, c *http.Cookie) *http.Request {
	req.AddCookie(c)
	return req
}
