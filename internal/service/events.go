// Package service holds the record-level rules layered over the
// document store. Each operation is one read-modify-write of the whole
// catalog through store.Update.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/store"
)

// Events applies the event record rules: views only grow, a name likes
// an event at most once, chat is append-only and ids are never reused.
type Events struct {
	store *store.Store
	now   func() time.Time
	newID func() string
}

// NewEvents returns an Events service backed by s.
func NewEvents(s *store.Store) *Events {
	return &Events{
		store: s,
		now:   time.Now,
		newID: func() string { return "ev_" + uuid.NewString() },
	}
}

// Filter narrows List. Text matches title, client or venue
// case-insensitively; Date matches the DD-MM-YYYY date exactly. When is
// "upcoming" (today or later), "past" or empty for any date; undated
// events only match the latter.
type Filter struct {
	Text string
	Date string
	When string
}

const (
	WhenAny      = ""
	WhenUpcoming = "upcoming"
	WhenPast     = "past"
)

func (f Filter) validate() error {
	switch strings.ToLower(strings.TrimSpace(f.When)) {
	case WhenAny, "any", WhenUpcoming, WhenPast:
		return nil
	}
	return apperr.Validation("when must be upcoming, past or any")
}

func (f Filter) match(e *model.EventRecord, today time.Time) bool {
	if f.Date != "" && strings.TrimSpace(e.Date) != strings.TrimSpace(f.Date) {
		return false
	}
	if when := strings.ToLower(strings.TrimSpace(f.When)); when == WhenUpcoming || when == WhenPast {
		d, ok := model.ParseEventDate(e.Date)
		if !ok || d.Before(today) != (when == WhenPast) {
			return false
		}
	}
	q := strings.ToLower(strings.TrimSpace(f.Text))
	if q == "" {
		return true
	}
	for _, field := range []string{e.Title, e.Client, e.Venue} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// List returns the matching events ordered by event date. Events without
// a parseable date come first; ties keep catalog order.
func (s *Events) List(ctx context.Context, f Filter) ([]model.EventRecord, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	c, err := s.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]model.EventRecord, 0, len(c.Events))
	for i := range c.Events {
		if f.match(&c.Events[i], today) {
			out = append(out, c.Events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := model.ParseEventDate(out[i].Date)
		tj, _ := model.ParseEventDate(out[j].Date)
		return ti.Before(tj)
	})
	return out, nil
}

// MaxPageSize caps Paginate.
const MaxPageSize = 100

// Page is one window of a List result.
type Page struct {
	Items    []model.EventRecord
	Total    int
	Page     int
	PageSize int
}

// Paginate returns page number page (from 1) of size events. A size of 0
// returns everything as a single page; larger sizes are capped at
// MaxPageSize.
func Paginate(events []model.EventRecord, page, size int) Page {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		return Page{Items: events, Total: len(events), Page: 1, PageSize: len(events)}
	}
	size = min(size, MaxPageSize)
	start := min((page-1)*size, len(events))
	end := min(start+size, len(events))
	return Page{Items: events[start:end], Total: len(events), Page: page, PageSize: size}
}

// Get returns one event without counting a view.
func (s *Events) Get(ctx context.Context, id string) (model.EventRecord, error) {
	c, err := s.store.Read(ctx)
	if err != nil {
		return model.EventRecord{}, err
	}
	i := c.Find(id)
	if i < 0 {
		return model.EventRecord{}, apperr.NotFound("event %q not found", id)
	}
	return c.Events[i], nil
}

// Chat returns the chat log of an event, oldest first.
func (s *Events) Chat(ctx context.Context, id string) ([]model.ChatMessage, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Chat == nil {
		return []model.ChatMessage{}, nil
	}
	return e.Chat, nil
}

// mutate runs fn on the event with the given id inside one catalog
// update and returns a copy of the event as written.
func (s *Events) mutate(ctx context.Context, id string, fn func(e *model.EventRecord) error) (model.EventRecord, error) {
	return s.mutateWith(ctx, s.store.Update, id, fn)
}

type updateFunc func(context.Context, func(*model.Catalog) error) (model.Catalog, error)

func (s *Events) mutateWith(ctx context.Context, update updateFunc, id string, fn func(e *model.EventRecord) error) (model.EventRecord, error) {
	var out model.EventRecord
	_, err := update(ctx, func(c *model.Catalog) error {
		i := c.Find(id)
		if i < 0 {
			return apperr.NotFound("event %q not found", id)
		}
		if err := fn(&c.Events[i]); err != nil {
			return err
		}
		out = c.Events[i].Clone()
		return nil
	})
	if err != nil {
		return model.EventRecord{}, err
	}
	return out, nil
}

// RecordView counts one access to the event. Every call counts; there
// is no per-viewer dedup. The write is marked as counters only, so cached
// lists keep serving until their TTL.
func (s *Events) RecordView(ctx context.Context, id string) (model.EventRecord, error) {
	return s.mutateWith(ctx, s.store.UpdateCounters, id, func(e *model.EventRecord) error {
		e.Views++
		return nil
	})
}

// ToggleLike records a like from displayName. A name that matches an
// earlier like after trimming and case folding fails with
// apperr.ErrAlreadyLiked. The name is stored trimmed with its case kept.
func (s *Events) ToggleLike(ctx context.Context, id, displayName string) (model.EventRecord, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return model.EventRecord{}, apperr.Validation("a name is required to like an event")
	}
	return s.mutate(ctx, id, func(e *model.EventRecord) error {
		if e.HasLiked(name) {
			return apperr.AlreadyLiked("%q already liked this event", name)
		}
		e.LikedBy = append(e.LikedBy, name)
		return nil
	})
}

// PostChatMessage appends a message to the event's chat.
func (s *Events) PostChatMessage(ctx context.Context, id, name, text string) (model.ChatMessage, error) {
	name, text = strings.TrimSpace(name), strings.TrimSpace(text)
	if name == "" || text == "" {
		return model.ChatMessage{}, apperr.Validation("chat messages need a name and text")
	}
	msg := model.ChatMessage{Name: name, Text: text, At: s.now().UTC().Truncate(time.Millisecond)}
	_, err := s.mutate(ctx, id, func(e *model.EventRecord) error {
		e.Chat = append(e.Chat, msg)
		return nil
	})
	if err != nil {
		return model.ChatMessage{}, err
	}
	return msg, nil
}

// UpsertEvent merges d into the event with id d.ID. When d.ID is empty
// or unknown a new event is created under a fresh id with zero counters.
func (s *Events) UpsertEvent(ctx context.Context, d EventDraft) (model.EventRecord, error) {
	return s.upsert(ctx, d, true)
}

// UpdateEvent merges d into the existing event id. An unknown id fails
// with apperr.ErrNotFound inside the same catalog update, so it never
// creates an event.
func (s *Events) UpdateEvent(ctx context.Context, id string, d EventDraft) (model.EventRecord, error) {
	if id == "" {
		return model.EventRecord{}, apperr.NotFound("event id is required")
	}
	d.ID = id
	return s.upsert(ctx, d, false)
}

func (s *Events) upsert(ctx context.Context, d EventDraft, create bool) (model.EventRecord, error) {
	if err := d.validate(); err != nil {
		return model.EventRecord{}, err
	}
	var out model.EventRecord
	_, err := s.store.Update(ctx, func(c *model.Catalog) error {
		i := -1
		if d.ID != "" {
			i = c.Find(d.ID)
		}
		if i >= 0 {
			e := c.Events[i].Clone()
			if err := d.apply(&e); err != nil {
				return err
			}
			c.Events[i] = e
			out = e.Clone()
			return nil
		}
		if !create {
			return apperr.NotFound("event %q not found", d.ID)
		}

		e := model.EventRecord{
			ID:      s.uniqueID(c),
			LikedBy: []string{},
			Chat:    []model.ChatMessage{},
		}
		if err := d.apply(&e); err != nil {
			return err
		}
		c.Events = append(c.Events, e)
		out = e.Clone()
		return nil
	})
	if err != nil {
		return model.EventRecord{}, err
	}
	return out, nil
}

func (s *Events) uniqueID(c *model.Catalog) string {
	for {
		id := s.newID()
		if c.Find(id) < 0 {
			return id
		}
	}
}

// DeleteEvent removes one event.
func (s *Events) DeleteEvent(ctx context.Context, id string) error {
	_, err := s.store.Update(ctx, func(c *model.Catalog) error {
		i := c.Find(id)
		if i < 0 {
			return apperr.NotFound("event %q not found", id)
		}
		c.Events = append(c.Events[:i], c.Events[i+1:]...)
		return nil
	})
	return err
}

// DeleteAll removes every event and reports how many there were.
func (s *Events) DeleteAll(ctx context.Context) (int, error) {
	var n int
	_, err := s.store.Update(ctx, func(c *model.Catalog) error {
		n = len(c.Events)
		c.Events = []model.EventRecord{}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
