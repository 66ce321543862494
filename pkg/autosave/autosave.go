// Package autosave persists an edited document after a quiet period, skipping
// writes when the serialized document has not changed since the last
// successful save.
package autosave

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// DefaultDelay is the quiet period before a change is written.
const DefaultDelay = 800 * time.Millisecond

// Status is the externally visible save state.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Saver persists a document. *store.Store satisfies it.
type Saver interface {
	Upsert(ctx context.Context, doc model.Document, opts store.UpsertOptions) (string, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithID targets an existing document. Without it the first save mints an
// id which the controller adopts.
func WithID(id string) Option {
	return func(c *Controller) {
		c.id = id
	}
}

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithClock overrides the time source for LastSavedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTheme passes a theme to every save.
func WithTheme(theme string) Option {
	return func(c *Controller) {
		c.theme = theme
	}
}

// WithBaseline marks doc as already persisted so observing it again does not
// trigger a write.
func WithBaseline(doc model.Document) Option {
	return func(c *Controller) {
		if snap, err := serialize(doc); err == nil {
			c.lastSnapshot = snap
		}
	}
}

// WithLogger receives save failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// OnFirstSave is called once with the id minted by the first successful save
// of a new document.
func OnFirstSave(fn func(id string)) Option {
	return func(c *Controller) {
		c.onFirstSave = fn
	}
}

// OnStatusChange is called after every status transition.
func OnStatusChange(fn func(Status)) Option {
	return func(c *Controller) {
		c.onStatus = fn
	}
}

// Controller debounces document changes into saves. At most one timer is
// pending; each change restarts the quiet period. Save failures set
// StatusError and are logged, never returned, and the next change retries.
type Controller struct {
	saver     Saver
	delay     time.Duration
	scheduler Scheduler
	now       func() time.Time
	logger    *slog.Logger
	theme     string

	onFirstSave func(string)
	onStatus    func(Status)

	// saveMu serializes persist calls; mu guards the fields below.
	saveMu sync.Mutex
	mu     sync.Mutex

	id           string
	lastSnapshot string
	// inflight is the snapshot being written, empty when no save runs.
	inflight     string
	pending      *pendingSave
	timer        Timer
	generation   uint64
	status       Status
	lastSavedAt  time.Time
	lastErr      error
	closed       bool
}

type pendingSave struct {
	doc      model.Document
	snapshot string
}

// New returns a controller saving through saver.
func New(saver Saver, opts ...Option) *Controller {
	c := &Controller{
		saver:     saver,
		delay:     DefaultDelay,
		scheduler: RealScheduler{},
		now:       time.Now,
		logger:    logging.Discard(),
		status:    StatusIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ID returns the target document id, empty until the first save of a new
// document.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Status returns the current save state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastSavedAt returns when the last successful save finished.
func (c *Controller) LastSavedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSavedAt
}

// LastError returns the error of the most recent failed save, cleared by the
// next success.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Dirty reports whether a change is waiting to be written.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Observe records the latest document. Identical snapshots are ignored; a
// change back to the last saved content, or to the content being written,
// cancels the pending save.
func (c *Controller) Observe(doc model.Document) {
	snap, err := serialize(doc)
	if err != nil {
		c.logger.Error("autosave: serialize document", "error", err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.inflight != "" && snap == c.inflight {
		c.cancelLocked()
		c.mu.Unlock()
		return
	}
	if c.inflight == "" && snap == c.lastSnapshot {
		hadPending := c.pending != nil
		c.cancelLocked()
		changed := false
		if hadPending {
			changed = c.setStatusLocked(c.settledLocked())
		}
		c.mu.Unlock()
		c.notify(changed)
		return
	}
	if c.pending != nil && c.pending.snapshot == snap {
		c.mu.Unlock()
		return
	}

	c.cancelLocked()
	c.pending = &pendingSave{doc: doc.Clone(), snapshot: snap}
	changed := c.setStatusLocked(StatusSaving)
	gen := c.generation
	c.timer = c.scheduler.AfterFunc(c.delay, func() { c.fire(gen) })
	c.mu.Unlock()
	c.notify(changed)
}

// Flush writes the pending change immediately. Use it when the host is
// hidden or backgrounded.
func (c *Controller) Flush(ctx context.Context) {
	c.mu.Lock()
	p := c.takeLocked()
	c.mu.Unlock()
	if p != nil {
		c.persist(ctx, p)
	}
}

// Hide is called when the editor loses visibility. Pending work is written
// right away; the controller keeps accepting changes.
func (c *Controller) Hide(ctx context.Context) {
	c.Flush(ctx)
}

// Close flushes the pending change and stops accepting new ones.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	p := c.takeLocked()
	c.mu.Unlock()
	if p != nil {
		c.persist(ctx, p)
	}
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	p := c.takeLocked()
	c.mu.Unlock()
	if p != nil {
		c.persist(context.Background(), p)
	}
}

// takeLocked detaches the pending save and cancels its timer.
func (c *Controller) takeLocked() *pendingSave {
	p := c.pending
	c.cancelLocked()
	return p
}

func (c *Controller) cancelLocked() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = nil
}

func (c *Controller) persist(ctx context.Context, p *pendingSave) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	id := c.id
	theme := c.theme
	c.inflight = p.snapshot
	c.mu.Unlock()

	newID, err := c.saver.Upsert(ctx, p.doc, store.UpsertOptions{
		ID:       id,
		Theme:    theme,
		CoverURL: p.doc.Background.URL,
	})

	c.mu.Lock()
	c.inflight = ""
	if err != nil {
		c.lastErr = err
		changed := c.setStatusLocked(StatusError)
		c.mu.Unlock()
		c.logger.Warn("autosave: save failed", "id", id, "error", err)
		c.notify(changed)
		return
	}

	first := c.id == "" && newID != ""
	if first {
		c.id = newID
	}
	c.lastSnapshot = p.snapshot
	c.lastSavedAt = c.now()
	c.lastErr = nil
	next := StatusSaved
	if c.pending != nil {
		next = StatusSaving
	}
	changed := c.setStatusLocked(next)
	onFirst := c.onFirstSave
	c.mu.Unlock()

	c.notify(changed)
	if first && onFirst != nil {
		onFirst(newID)
	}
}

func (c *Controller) settledLocked() Status {
	if c.lastErr != nil {
		return StatusError
	}
	if c.lastSavedAt.IsZero() {
		return StatusIdle
	}
	return StatusSaved
}

func (c *Controller) setStatusLocked(s Status) bool {
	if c.status == s {
		return false
	}
	c.status = s
	return true
}

func (c *Controller) notify(changed bool) {
	if !changed || c.onStatus == nil {
		return
	}
	c.onStatus(c.Status())
}

func serialize(doc model.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
