// Package web is the HTTP layer of the slot planner: public pages for
// submitting and viewing, and the session-gated admin interface for
// arranging the plan.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"slotplan/internal/capture"
	"slotplan/internal/config"
	"slotplan/internal/dimension"
	"slotplan/internal/grid"
	"slotplan/internal/ical"
	applog "slotplan/internal/log"
	"slotplan/internal/model"
	"slotplan/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	sessionCookie = "slotplan_session"
	sessionTTL    = 60 * time.Minute

	// dimensionHint is the prompt text prefilled into empty axis
	// textareas on the admin form. Lines equal to it are discarded on
	// submit as if the textarea had been left empty.
	dimensionHint = "One name per line"
)

// Server wires the store, config and templates into an http.Handler.
type Server struct {
	cfg      *config.Config
	st       *store.Store
	sessions *sessionStore
	tmpl     *template.Template
	router   chi.Router
	loc      *time.Location
}

// NewServer constructs the HTTP server around an opened store.
func NewServer(cfg *config.Config, st *store.Store) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		applog.Error("failed to load timezone, falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}

	s := &Server{
		cfg:      cfg,
		st:       st,
		sessions: newSessionStore(sessionTTL),
		tmpl:     tmpl,
		loc:      loc,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleHome)
	r.Get("/health", s.handleHealth)
	r.Get("/submit", s.handleSubmitForm)
	r.Post("/submit", s.handleSubmit)
	r.Get("/slotplan", s.handleSlotplan)
	r.Get("/slotplan.ics", s.handleICal)
	r.Get("/preview.png", s.handlePreviewPNG)
	r.Get("/info/{level1}/{level2}", s.handleInfo)

	r.Get("/admin", s.handleLoginForm)
	r.Post("/admin", s.handleLogin)
	r.Get("/admin/plan", s.requireAdmin(s.handleAdminPlan))
	r.Post("/admin/dimensions", s.requireAdmin(s.handleDimensions))
	r.Post("/admin/schedule", s.requireAdmin(s.handleSchedule))
	r.Post("/admin/swap", s.requireAdmin(s.handleSwap))
	r.Post("/admin/preview", s.requireAdmin(s.handlePreviewRefresh))
	r.Post("/admin/logout", s.requireAdmin(s.handleLogout))

	return r
}

// page carries the fields every template needs.
type page struct {
	Event   string
	Contact string
}

func (s *Server) page() page {
	return page{Event: s.cfg.Event, Contact: s.cfg.ContactEmail}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		applog.Error("template render failed", err, "template", name)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "home.html", struct{ Page page }{s.page()})
}

// --- submission ---

type submitData struct {
	Page  page
	Done  bool
	Error string
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "submit.html", submitData{Page: s.page()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	sub := store.Submission{
		FirstName:     r.PostFormValue("first_name"),
		LastName:      r.PostFormValue("last_name"),
		Email:         r.PostFormValue("email"),
		TwitterHandle: r.PostFormValue("twitter_handle"),
		Title:         r.PostFormValue("title"),
		Abstract:      r.PostFormValue("abstract"),
	}

	_, err := s.st.Submit(sub, s.cfg.ParticipantsEmails)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			s.render(w, http.StatusUnprocessableEntity, "submit.html",
				submitData{Page: s.page(), Error: s.validationMessage(verr)})
			return
		}
		applog.Error("submission failed", err)
		http.Error(w, "internal error, please try again later", http.StatusInternalServerError)
		return
	}

	s.render(w, http.StatusOK, "submit.html", submitData{Page: s.page(), Done: true})
}

// validationMessage maps a rejection to the friendly message shown to the
// submitter. Each reason gets its own wording; the messages deliberately
// follow the tone of the original barcamp tool.
func (s *Server) validationMessage(verr *store.ValidationError) string {
	switch verr.Reason {
	case store.ReasonEmptyField:
		switch verr.Field {
		case "first_name":
			return "Please enter your first name."
		case "last_name":
			return "Please enter your last name."
		default:
			return "Please enter the title of your contribution."
		}
	case store.ReasonBadEmail:
		return "I am sorry, but that does not look like a valid email address."
	case store.ReasonNotAuthorized:
		return "It looks like you did not sign up for the event with that email address. " +
			"Please go back and enter the email address you signed up with. " +
			"Questions? Email " + s.cfg.ContactEmail + "."
	case store.ReasonUnserializable:
		return "Your submission contains data that I can not save. " +
			"Please go back and check the text you entered; try to omit the abstract if you entered one."
	}
	return "Your submission could not be processed."
}

// --- slot plan views ---

type slotplanData struct {
	Page page
	Plan SlotplanView
}

func (s *Server) handleSlotplan(w http.ResponseWriter, _ *http.Request) {
	doc := s.st.Snapshot()
	s.render(w, http.StatusOK, "slotplan.html", slotplanData{Page: s.page(), Plan: buildSlotplan(doc)})
}

type infoData struct {
	Page page
	Day  string
	Room string
	Now  string
	Info store.NextInfo
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	l1, err1 := strconv.Atoi(chi.URLParam(r, "level1"))
	l2, err2 := strconv.Atoi(chi.URLParam(r, "level2"))
	if err1 != nil || err2 != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	// now 파라미터가 없으면 설정된 타임존의 현재 시각을 사용한다.
	now := r.URL.Query().Get("now")
	if now == "" {
		now = time.Now().In(s.loc).Format("15:04")
	}

	info, err := s.st.NextAndParallel(l1, l2, now)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	set := s.st.Dimensions()
	day := ""
	room := ""
	if names := set.Level1(); l1 < len(names) {
		day = names[l1]
	}
	if rooms, rerr := set.Level2Axis(l1); rerr == nil && l2 < len(rooms) {
		room = rooms[l2]
	}

	s.render(w, http.StatusOK, "info.html", infoData{
		Page: s.page(), Day: day, Room: room, Now: now, Info: info,
	})
}

func (s *Server) handleICal(w http.ResponseWriter, _ *http.Request) {
	doc := s.st.Snapshot()
	payload := ical.Export(doc, ical.Options{
		Event:       s.cfg.Event,
		Dates:       s.cfg.EventDates,
		SlotMinutes: s.cfg.SlotMinutes,
		Location:    s.loc,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="slotplan.ics"`)
	_, _ = w.Write([]byte(payload))
}

func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile turns a missing preview into a plain 404.
	http.ServeFile(w, r, filepath.Join(s.cfg.DataDir, "preview.png"))
}

// --- admin ---

type loginData struct {
	Page  page
	Error string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && s.sessions.Valid(c.Value) {
		http.Redirect(w, r, "/admin/plan", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginData{Page: s.page()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	password := r.PostFormValue("password")
	// 빈 비밀번호는 설정값과 무관하게 항상 거부한다.
	if password == "" || !secureCompare(password, s.cfg.AdminPassword) {
		applog.Info("admin login rejected")
		s.render(w, http.StatusUnauthorized, "login.html",
			loginData{Page: s.page(), Error: "Wrong password."})
		return
	}

	token := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	applog.Info("admin logged in")
	http.Redirect(w, r, "/admin/plan", http.StatusSeeOther)
}

// requireAdmin is the capability check performed before every protected
// operation: no valid session, no state change, just a redirect to the
// login form.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || !s.sessions.Valid(c.Value) {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// dimColumn prefills one level-1 category's axis textareas.
type dimColumn struct {
	Index      int
	Level2Text string
	Level3Text string
}

// scheduleForm renders one per-category scheduling form.
type scheduleForm struct {
	DayIndex int
	DayName  string
	Rooms    []string
	Slots    []string
}

type adminData struct {
	Page          page
	Message       string
	Error         string
	Contributions []store.Entry
	Unscheduled   []store.Entry
	Scheduled     []store.Entry
	Level1Text    string
	Columns       []dimColumn
	ScheduleForms []scheduleForm
	Plan          SlotplanView
}

func (s *Server) handleAdminPlan(w http.ResponseWriter, r *http.Request) {
	doc := s.st.Snapshot()
	set := dimension.Set(doc.SlotDimensionNames)

	data := adminData{
		Page:          s.page(),
		Message:       r.URL.Query().Get("msg"),
		Error:         r.URL.Query().Get("err"),
		Contributions: s.st.Contributions(),
		Unscheduled:   s.st.Unscheduled(),
		Scheduled:     scheduledEntries(doc.Contributions, grid.Grid(doc.Schedule)),
		Level1Text:    strings.Join(set.Level1(), "\n"),
		Plan:          buildSlotplan(doc),
	}

	for i := 0; i < s.cfg.MaxLevel1; i++ {
		col := dimColumn{Index: i, Level2Text: dimensionHint, Level3Text: dimensionHint}
		if i < len(set.Level1()) {
			if axis, err := set.Level2Axis(i); err == nil && len(axis) > 0 {
				col.Level2Text = strings.Join(axis, "\n")
			}
			if axis, err := set.Level3Axis(i); err == nil && len(axis) > 0 {
				col.Level3Text = strings.Join(axis, "\n")
			}
		}
		data.Columns = append(data.Columns, col)
	}

	for i, name := range set.Level1() {
		rooms, err := set.Level2Axis(i)
		if err != nil {
			continue
		}
		slots, err := set.Level3Axis(i)
		if err != nil {
			continue
		}
		data.ScheduleForms = append(data.ScheduleForms, scheduleForm{
			DayIndex: i, DayName: name, Rooms: rooms, Slots: slots,
		})
	}

	s.render(w, http.StatusOK, "admin.html", data)
}

func scheduledEntries(contributions map[string]model.Contribution, g grid.Grid) []store.Entry {
	ids := g.ScheduledIDs()
	out := make([]store.Entry, 0, len(ids))
	for id := range ids {
		c, ok := contributions[id]
		if !ok {
			continue
		}
		out = append(out, store.Entry{ID: id, Contribution: c})
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}

func (s *Server) handleDimensions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	level1 := dimension.SplitLines(r.PostFormValue("level1"), dimensionHint)
	var level2Lists, level3Lists [][]string
	for i := 0; i < s.cfg.MaxLevel1; i++ {
		level2Lists = append(level2Lists,
			dimension.SplitLines(r.PostFormValue("level2_"+strconv.Itoa(i)), dimensionHint))
		level3Lists = append(level3Lists,
			dimension.SplitLines(r.PostFormValue("level3_"+strconv.Itoa(i)), dimensionHint))
	}

	if err := s.st.ReplaceDimensions(level1, level2Lists, level3Lists); err != nil {
		applog.Error("replacing dimensions failed", err)
		s.redirectAdmin(w, r, "", "Saving the slot dimensions failed.")
		return
	}
	s.redirectAdmin(w, r, "Slot dimensions saved.", "")
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	day, err := strconv.Atoi(r.PostFormValue("level1"))
	if err != nil {
		s.redirectAdmin(w, r, "", "Invalid day selection.")
		return
	}
	room := r.PostFormValue("level2")
	slot := r.PostFormValue("level3")
	id := r.PostFormValue("contribution")

	if err := s.st.ScheduleByName(day, room, slot, id); err != nil {
		applog.Error("scheduling failed", err, "id", id)
		s.redirectAdmin(w, r, "", "Scheduling failed: "+err.Error())
		return
	}
	s.redirectAdmin(w, r, "Contribution "+id+" scheduled.", "")
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	ids := r.PostForm["swap_id"]
	if len(ids) != 2 {
		s.redirectAdmin(w, r, "", "Please select exactly two contributions to swap.")
		return
	}

	if err := s.st.Swap(ids[0], ids[1]); err != nil {
		applog.Error("swap failed", err, "id_a", ids[0], "id_b", ids[1])
		if errors.Is(err, grid.ErrNotScheduled) {
			s.redirectAdmin(w, r, "", "Both contributions must be scheduled before swapping.")
			return
		}
		s.redirectAdmin(w, r, "", "Swap failed.")
		return
	}
	s.redirectAdmin(w, r, "Contributions "+ids[0]+" and "+ids[1]+" swapped.", "")
}

func (s *Server) handlePreviewRefresh(w http.ResponseWriter, r *http.Request) {
	go s.CapturePreview(context.Background())
	s.redirectAdmin(w, r, "Preview refresh started.", "")
}

// CapturePreview renders the slot plan page to the preview PNG. It is
// invoked from the admin UI and from the periodic cron job in main.
func (s *Server) CapturePreview(ctx context.Context) {
	err := capture.SlotplanPNG(ctx, capture.Options{
		URL:        "http://" + s.cfg.Listen + "/slotplan",
		OutputPath: filepath.Join(s.cfg.DataDir, "preview.png"),
	})
	if err != nil {
		applog.Error("preview capture failed", err)
		return
	}
	applog.Info("preview captured", "path", filepath.Join(s.cfg.DataDir, "preview.png"))
}

func (s *Server) redirectAdmin(w http.ResponseWriter, r *http.Request, msg, errMsg string) {
	q := url.Values{}
	if msg != "" {
		q.Set("msg", msg)
	}
	if errMsg != "" {
		q.Set("err", errMsg)
	}
	target := "/admin/plan"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
