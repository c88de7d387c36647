// Package session holds the one live estimate of a running process together
// with everything that acts on it: the catalog it is priced against, the store
// it is saved to, autosave and debounced catalog search.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/export"
	"github.com/Simplici0/costestimator/internal/logging"
	"github.com/Simplici0/costestimator/internal/metrics"
	"github.com/Simplici0/costestimator/internal/store"
)

const (
	module    = "session"
	searchKey = "catalog_search"

	// DefaultAutosaveKey is the record id autosaves are written under.
	DefaultAutosaveKey = "auto_save_estimate"
	autosaveName       = "Autosave"
)

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a message for the user about something that happened in the
// background or as the result of a request.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// ErrNoCatalog is returned when a session is given a nil catalog.
var ErrNoCatalog = errors.New("session: catalog is required")

// Options configures a Session. Catalog and Store are required.
type Options struct {
	Catalog  *catalog.Catalog
	Store    store.Store
	Defaults estimate.Defaults

	AutosaveKey      string
	AutosaveDelay    time.Duration
	SearchDebounce   time.Duration
	SearchMinChars   int
	SearchMaxResults int

	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics

	// Now and NewID default to time.Now and "estimate_<uuid>".
	Now   func() time.Time
	NewID func() string
}

// Session is safe for concurrent use.
type Session struct {
	catalog *catalog.Catalog
	store   store.Store
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	autosaveKey      string
	searchMinChars   int
	searchMaxResults int

	autosaver *estimate.Debouncer
	searcher  *estimate.Debouncer

	mu        sync.Mutex
	est       *estimate.Estimate
	currentID string
	autosave  autosaveState
	notices   []Notice
}

// New starts a session on a fresh estimate. It fails without a catalog.
func New(opts Options) (*Session, error) {
	if opts.Catalog == nil {
		return nil, ErrNoCatalog
	}
	s := &Session{
		catalog:          opts.Catalog,
		store:            opts.Store,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		now:              opts.Now,
		newID:            opts.NewID,
		autosaveKey:      opts.AutosaveKey,
		searchMinChars:   opts.SearchMinChars,
		searchMaxResults: opts.SearchMaxResults,
		autosaver:        estimate.NewDebouncer(opts.AutosaveDelay),
		searcher:         estimate.NewDebouncer(opts.SearchDebounce),
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return "estimate_" + uuid.NewString() }
	}
	if s.autosaveKey == "" {
		s.autosaveKey = DefaultAutosaveKey
	}
	if opts.Defaults.Now == nil {
		opts.Defaults.Now = s.now
	}
	s.est = estimate.New(s.catalog, opts.Defaults)
	return s, nil
}

// Catalog is the catalog actions are priced against.
func (s *Session) Catalog() *catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// SetCatalog switches to c and re-prices every action of the live estimate.
// Rule ids missing from c price as zero.
func (s *Session) SetCatalog(c *catalog.Catalog) error {
	if c == nil {
		return ErrNoCatalog
	}
	return s.Update(func(e *estimate.Estimate) error {
		s.catalog = c
		e.SetRules(c)
		return nil
	})
}

// Snapshot captures the live estimate.
func (s *Session) Snapshot() estimate.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.est.Snapshot()
}

// Validate lists actions that still need a quantity.
func (s *Session) Validate() []estimate.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.est.Validate()
}

// Update runs fn against the live estimate under the session lock. When fn
// succeeds an autosave is scheduled, superseding any pending one.
func (s *Session) Update(fn func(e *estimate.Estimate) error) error {
	s.mu.Lock()
	err := fn(s.est)
	total := s.est.Totals().GrandTotal
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.GrandTotal.Set(total)
	}
	s.scheduleAutosave()
	return nil
}

// Reset starts over with a new estimate. The next Save creates a new record.
func (s *Session) Reset() {
	_ = s.Update(func(e *estimate.Estimate) error {
		e.Reset()
		s.currentID = ""
		return nil
	})
}

// CurrentID is the id of the record the live estimate was loaded from or last
// saved to, or "" for an unsaved estimate.
func (s *Session) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Save writes the live estimate under its current id, or a new one, named
// name. A blank name falls back to the project name, then to the save time.
// On failure the live estimate is left as it was and an error notice is queued.
func (s *Session) Save(ctx context.Context, name string) (store.Summary, error) {
	savedAt := s.now().UTC()

	s.mu.Lock()
	id := s.currentID
	if id == "" {
		id = s.newID()
	}
	snap := s.est.Snapshot()
	s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(snap.Project.Name)
	}
	if name == "" {
		name = "Estimate " + savedAt.Format("2006-01-02 15:04")
	}

	rec, err := s.put(ctx, id, name, savedAt, snap)
	if err != nil {
		s.countSave("manual", err)
		logging.LogWarn(s.logger, module, "Save", "storing estimate", map[string]any{"id": id, "name": name}, err)
		s.notify(LevelError, "Failed to save estimate. Please try again.")
		return store.Summary{}, err
	}
	s.countSave("manual", nil)

	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()

	s.notify(LevelSuccess, fmt.Sprintf("Estimate %q saved successfully.", name))
	return store.Summary{ID: rec.ID, Name: rec.Name, SavedAt: rec.SavedAt, GrandTotal: rec.GrandTotal}, nil
}

// Load replaces the live estimate with a saved one. Any pending autosave of
// the replaced estimate is dropped.
func (s *Session) Load(ctx context.Context, id string) error {
	e, err := s.read(ctx, id)
	if err != nil {
		logging.LogWarn(s.logger, module, "Load", "loading estimate", map[string]any{"id": id}, err)
		s.notify(LevelError, "Failed to load estimate. It may have been deleted.")
		return err
	}

	s.autosaver.Cancel(s.autosaveKey)
	s.mu.Lock()
	s.est = e
	s.currentID = id
	total := e.Totals().GrandTotal
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.GrandTotal.Set(total)
	}
	return nil
}

// RestoreAutosave loads the last autosave, if there is one. It reports whether
// anything was restored.
func (s *Session) RestoreAutosave(ctx context.Context) (bool, error) {
	e, err := s.read(ctx, s.autosaveKey)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.autosaver.Cancel(s.autosaveKey)
	s.mu.Lock()
	s.est = e
	s.currentID = ""
	total := e.Totals().GrandTotal
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.GrandTotal.Set(total)
	}
	return true, nil
}

// List returns saved estimates, newest first. The autosave record is not
// listed.
func (s *Session) List(ctx context.Context) ([]store.Summary, error) {
	start := time.Now()
	all, err := s.store.List(ctx)
	s.metrics.ObserveStore(string(s.store.Driver()), "list", start)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	out := make([]store.Summary, 0, len(all))
	for _, sum := range all {
		if sum.ID != s.autosaveKey {
			out = append(out, sum)
		}
	}
	return out, nil
}

// Delete removes a saved estimate. Deleting the record the live estimate came
// from makes the next Save create a new one.
func (s *Session) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.store.Delete(ctx, id)
	s.metrics.ObserveStore(string(s.store.Driver()), "delete", start)
	if err != nil {
		return fmt.Errorf("delete estimate %s: %w", id, err)
	}

	s.mu.Lock()
	if s.currentID == id {
		s.currentID = ""
	}
	s.mu.Unlock()
	return nil
}

// Export renders the live estimate and returns the body with its filename.
// An estimate without locations fails with export.ErrEmptyEstimate.
func (s *Session) Export(format export.Format) ([]byte, string, error) {
	s.mu.Lock()
	empty := s.est.IsEmpty()
	snap := s.est.Snapshot()
	s.mu.Unlock()

	var body []byte
	var err error
	if empty {
		err = export.ErrEmptyEstimate
	} else {
		body, err = export.Render(format, snap)
	}
	if s.metrics != nil {
		s.metrics.Exports.WithLabelValues(string(format), result(err)).Inc()
	}
	if err != nil {
		return nil, "", err
	}
	return body, export.Filename(snap.Project.Name) + "." + string(format), nil
}

// Search runs a typeahead query immediately.
func (s *Session) Search(text string) []catalog.SearchResult {
	if s.metrics != nil {
		s.metrics.Searches.Inc()
	}
	return s.Catalog().Typeahead(text, s.searchMinChars, s.searchMaxResults)
}

// SearchDebounced runs the query once input has been quiet for the search
// debounce and hands the results to deliver. A newer query supersedes a
// pending one, whose deliver is never called.
func (s *Session) SearchDebounced(text string, deliver func([]catalog.SearchResult)) {
	s.searcher.Schedule(searchKey, func() { deliver(s.Search(text)) })
}

// Notices drains queued notices, oldest first.
func (s *Session) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

// Close writes any pending autosave and stops the timers.
func (s *Session) Close() {
	s.autosaver.Flush(s.autosaveKey)
	s.autosaver.Stop()
	s.searcher.Stop()
}

func (s *Session) notify(level Level, msg string) {
	s.mu.Lock()
	s.notices = append(s.notices, Notice{Level: level, Message: msg})
	s.mu.Unlock()
}

func (s *Session) put(ctx context.Context, id, name string, savedAt time.Time, snap estimate.Snapshot) (store.Record, error) {
	snap.Name = name
	snap.SavedAt = &savedAt
	payload, err := json.Marshal(snap)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode estimate: %w", err)
	}

	rec := store.Record{ID: id, Name: name, SavedAt: savedAt, GrandTotal: snap.GrandTotal, Payload: payload}
	start := time.Now()
	err = s.store.Put(ctx, rec)
	s.metrics.ObserveStore(string(s.store.Driver()), "put", start)
	if err != nil {
		return store.Record{}, fmt.Errorf("save estimate %s: %w", id, err)
	}
	return rec, nil
}

func (s *Session) read(ctx context.Context, id string) (*estimate.Estimate, error) {
	start := time.Now()
	rec, err := s.store.Get(ctx, id)
	s.metrics.ObserveStore(string(s.store.Driver()), "get", start)
	if err != nil {
		return nil, fmt.Errorf("load estimate %s: %w", id, err)
	}

	var snap estimate.Snapshot
	if err := json.Unmarshal(rec.Payload, &snap); err != nil {
		return nil, fmt.Errorf("decode estimate %s: %w", id, err)
	}

	s.mu.Lock()
	rules := s.catalog
	defaults := s.est.Defaults()
	s.mu.Unlock()

	e, err := estimate.FromSnapshot(rules, defaults, snap)
	if err != nil {
		return nil, fmt.Errorf("load estimate %s: %w", id, err)
	}
	return e, nil
}

func (s *Session) countSave(kind string, err error) {
	if s.metrics != nil {
		s.metrics.Saves.WithLabelValues(kind, result(err)).Inc()
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
