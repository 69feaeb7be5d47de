// Package store owns the single in-memory slot-planner document and its
// file-backed persistence. All mutating operations serialise through one
// writer lock and persist before returning; reads copy a consistent
// snapshot under the read lock.
package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"slotplan/internal/dimension"
	"slotplan/internal/grid"
	applog "slotplan/internal/log"
	"slotplan/internal/model"
)

// Notifier receives a callback for every successfully persisted
// submission. Implementations must tolerate being called from a separate
// goroutine; a failing notifier never rolls the submission back.
type Notifier interface {
	SubmissionReceived(c model.Contribution, id string) error
}

// Options tune a Store beyond its data directory.
type Options struct {
	// MaxLevel1 caps the number of level-1 categories accepted by
	// ReplaceDimensions. <= 0 means no cap.
	MaxLevel1 int
	// MaxBackups limits how many timestamped database backups are kept
	// after each write. 0 keeps all.
	MaxBackups int
	// Notifier, if non-nil, is invoked after each persisted submission.
	Notifier Notifier
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Store is the single owner of the mutable document.
type Store struct {
	mu  sync.RWMutex
	doc model.Document

	dataDir    string
	maxLevel1  int
	maxBackups int
	notifier   Notifier
	now        func() time.Time
}

// Open loads the database from dataDir, starting from an empty document
// when no database file exists yet. A present but unreadable/corrupt file
// is an error: silently discarding an existing database would lose data on
// the next write.
func Open(dataDir string, opts Options) (*Store, error) {
	s := &Store{
		dataDir:    dataDir,
		maxLevel1:  opts.MaxLevel1,
		maxBackups: opts.MaxBackups,
		notifier:   opts.Notifier,
		now:        opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	doc, err := s.loadDB()
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// Submission carries the raw form fields of a contribution submission.
type Submission struct {
	FirstName     string
	LastName      string
	Email         string
	TwitterHandle string
	Title         string
	Abstract      string
}

// Submit validates the submission against the participant allow-list,
// assigns the next contribution id, persists the document, writes an audit
// line and fires the notifier. The new id is returned.
//
// Persistence completes before the notifier is invoked; the notifier runs
// on its own goroutine and its failures are only logged.
func (s *Store) Submit(sub Submission, allowlist []string) (string, error) {
	c, err := validate(sub, allowlist)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	id := s.nextIDLocked()
	s.doc.Contributions[id] = c
	if err := s.writeDBLocked(); err != nil {
		// Keep memory and disk consistent: an unpersisted submission
		// must not linger in the document.
		delete(s.doc.Contributions, id)
		s.mu.Unlock()
		return "", err
	}
	s.appendAuditLocked(c.Email + " submitted contribution " + id)
	s.mu.Unlock()

	applog.Info("contribution submitted", "id", id, "email", c.Email)

	if s.notifier != nil {
		go func() {
			if err := s.notifier.SubmissionReceived(c, id); err != nil {
				applog.Error("submission notification failed", err, "id", id)
			}
		}()
	}
	return id, nil
}

// validate applies the submission rules in a fixed order and returns the
// cleaned contribution record.
func validate(sub Submission, allowlist []string) (model.Contribution, error) {
	var zero model.Contribution

	first := strings.TrimSpace(sub.FirstName)
	if first == "" {
		return zero, &ValidationError{Field: "first_name", Reason: ReasonEmptyField}
	}
	last := strings.TrimSpace(sub.LastName)
	if last == "" {
		return zero, &ValidationError{Field: "last_name", Reason: ReasonEmptyField}
	}

	// At least "a@b.c": a minimum length, an "@" and a "." that are not
	// the first character.
	email := strings.TrimSpace(sub.Email)
	if len(email) < 5 || strings.Index(email, "@") < 1 || strings.Index(email, ".") < 1 {
		return zero, &ValidationError{Field: "email", Reason: ReasonBadEmail}
	}
	if !onAllowlist(email, allowlist) {
		return zero, &ValidationError{Field: "email", Reason: ReasonNotAuthorized}
	}

	title := strings.TrimSpace(sub.Title)
	if title == "" {
		return zero, &ValidationError{Field: "title", Reason: ReasonEmptyField}
	}

	handle := strings.TrimSpace(sub.TwitterHandle)
	if handle != "" && !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}

	c := model.Contribution{
		FirstName:     first,
		LastName:      last,
		Email:         email,
		TwitterHandle: handle,
		Title:         title,
		Abstract:      strings.TrimSpace(sub.Abstract),
	}
	return repairEncoding(c)
}

// repairEncoding makes sure the record survives the UTF-8 interchange
// format. Title and abstract are the free-text fields most likely to carry
// a broken paste, so they get a lossy repair; if any other field is still
// invalid afterwards the submission is rejected.
func repairEncoding(c model.Contribution) (model.Contribution, error) {
	valid := func(fields ...string) bool {
		for _, f := range fields {
			if !utf8.ValidString(f) {
				return false
			}
		}
		return true
	}

	if valid(c.FirstName, c.LastName, c.Email, c.TwitterHandle, c.Title, c.Abstract) {
		return c, nil
	}

	c.Title = strings.ToValidUTF8(c.Title, "�")
	c.Abstract = strings.ToValidUTF8(c.Abstract, "�")

	if !valid(c.FirstName, c.LastName, c.Email, c.TwitterHandle, c.Title, c.Abstract) {
		return model.Contribution{}, &ValidationError{Reason: ReasonUnserializable}
	}
	return c, nil
}

func onAllowlist(email string, allowlist []string) bool {
	lower := strings.ToLower(email)
	for _, a := range allowlist {
		if lower == strings.ToLower(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// nextIDLocked computes max(existing numeric id)+1, or "0" for an empty
// store. Non-numeric keys (which a hand-edited database could contain) are
// ignored.
func (s *Store) nextIDLocked() string {
	next := 0
	for existing := range s.doc.Contributions {
		n, err := strconv.Atoi(existing)
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return strconv.Itoa(next)
}

// Entry pairs a contribution with its id for listing views.
type Entry struct {
	ID string
	model.Contribution
}

// Contributions returns all contributions ordered by numeric id.
func (s *Store) Contributions() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesLocked(nil)
}

// Contribution looks up a single contribution by id.
func (s *Store) Contribution(id string) (model.Contribution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.doc.Contributions[id]
	return c, ok
}

// Unscheduled returns the contributions that do not appear anywhere in the
// schedule grid, ordered by numeric id. This feeds the admin picker, which
// is also what keeps a contribution from being scheduled twice.
func (s *Store) Unscheduled() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scheduled := grid.Grid(s.doc.Schedule).ScheduledIDs()
	return s.entriesLocked(func(id string) bool {
		_, ok := scheduled[id]
		return !ok
	})
}

func (s *Store) entriesLocked(keep func(id string) bool) []Entry {
	ids := make([]string, 0, len(s.doc.Contributions))
	for id := range s.doc.Contributions {
		if keep == nil || keep(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})

	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, Entry{ID: id, Contribution: s.doc.Contributions[id]})
	}
	return out
}

// ReplaceDimensions replaces the whole axis set. The new offset-addressed
// list is constructed first and assigned wholesale; there is no partial
// merge with the previous state. Calling it twice with the same input is
// idempotent.
func (s *Store) ReplaceDimensions(level1 []string, level2Lists, level3Lists [][]string) error {
	set := dimension.New(level1, level2Lists, level3Lists, s.maxLevel1)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.SlotDimensionNames
	s.doc.SlotDimensionNames = set
	if err := s.writeDBLocked(); err != nil {
		s.doc.SlotDimensionNames = prev
		return err
	}
	applog.Info("slot dimensions replaced", "level1_count", len(set.Level1()))
	return nil
}

// Dimensions returns a copy of the current axis set.
func (s *Store) Dimensions() dimension.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dimension.Set(s.doc.SlotDimensionNames).Clone()
}

// ScheduleByName places a contribution into the slot addressed by a level-1
// index and the display names of a level-2 and level-3 axis entry. Any
// previous occupant of that exact slot is silently replaced.
func (s *Store) ScheduleByName(level1Index int, level2Name, level3Name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Contributions[id]; !ok {
		return &SchedulingError{Err: ErrUnknownContribution}
	}

	set := dimension.Set(s.doc.SlotDimensionNames)
	l2, err := set.Level2Index(level1Index, level2Name)
	if err != nil {
		return &SchedulingError{Err: err}
	}
	l3, err := set.Level3Index(level1Index, level3Name)
	if err != nil {
		return &SchedulingError{Err: err}
	}

	g := grid.Grid(s.doc.Schedule)
	prev := g.Clone()
	g.Assign(level1Index, l2, l3, id)
	if err := s.writeDBLocked(); err != nil {
		s.doc.Schedule = prev
		return err
	}
	applog.Info("contribution scheduled", "id", id, "level1", level1Index, "level2", l2, "level3", l3)
	return nil
}

// Swap exchanges the slots of two scheduled contributions. The grid is
// guaranteed unchanged when validation fails.
func (s *Store) Swap(idA, idB string) error {
	idA = strings.TrimSpace(idA)
	idB = strings.TrimSpace(idB)
	if idA == "" || idB == "" || idA == idB {
		return ErrSwapCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := grid.Grid(s.doc.Schedule)
	prev := g.Clone()
	if err := g.Swap(idA, idB); err != nil {
		return err
	}
	if err := s.writeDBLocked(); err != nil {
		s.doc.Schedule = prev
		return err
	}
	applog.Info("contributions swapped", "id_a", idA, "id_b", idB)
	return nil
}

// NextInfo describes the upcoming session in one track plus the sessions
// running in parallel in the other tracks of the same level-1 category.
type NextInfo struct {
	Found    bool
	SlotName string
	Next     Entry
	Parallel []ParallelEntry
}

// ParallelEntry is a session in another level-2 track at the same level-3
// slot.
type ParallelEntry struct {
	Level2Index int
	Level2Name  string
	Entry
}

// NextAndParallel reports what is next in (level1Index, level2Index) after
// the given time-of-day label. The level-3 axis names are compared as raw
// strings, which matches zero-padded "HH:MM" labels.
func (s *Store) NextAndParallel(level1Index, level2Index int, now string) (NextInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := dimension.Set(s.doc.SlotDimensionNames)
	level3Names, err := set.Level3Axis(level1Index)
	if err != nil {
		return NextInfo{}, &SchedulingError{Err: err}
	}
	level2Names, err := set.Level2Axis(level1Index)
	if err != nil {
		return NextInfo{}, &SchedulingError{Err: err}
	}
	if level2Index < 0 || level2Index >= len(level2Names) {
		return NextInfo{}, &SchedulingError{
			Err: fmt.Errorf("level-2 index %d out of range [0,%d)", level2Index, len(level2Names)),
		}
	}

	g := grid.Grid(s.doc.Schedule)
	next, nextIndex, parallel, ok := g.NextAndParallel(level1Index, level2Index, level3Names, now)
	if !ok {
		return NextInfo{Found: false}, nil
	}

	info := NextInfo{
		Found:    true,
		SlotName: level3Names[nextIndex],
		Next:     Entry{ID: next, Contribution: s.doc.Contributions[next]},
	}
	for _, p := range parallel {
		name := ""
		if p.Level2Index >= 0 && p.Level2Index < len(level2Names) {
			name = level2Names[p.Level2Index]
		}
		info.Parallel = append(info.Parallel, ParallelEntry{
			Level2Index: p.Level2Index,
			Level2Name:  name,
			Entry:       Entry{ID: p.Contribution, Contribution: s.doc.Contributions[p.Contribution]},
		})
	}
	return info, nil
}

// Snapshot returns a deep copy of the document for rendering. Readers never
// observe a half-applied mutation.
func (s *Store) Snapshot() model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := model.NewDocument()
	for id, c := range s.doc.Contributions {
		doc.Contributions[id] = c
	}
	doc.SlotDimensionNames = dimension.Set(s.doc.SlotDimensionNames).Clone()
	doc.Schedule = grid.Grid(s.doc.Schedule).Clone()
	return doc
}
