package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/repository"
	"github.com/iliyamo/event-showcase/internal/store"
)

func ptr[T any](v T) *T { return &v }

func newEvents(t *testing.T) (*Events, *store.Store) {
	t.Helper()
	s := store.New(repository.NewMemory(), store.Options{})
	require.NoError(t, s.InitializeDefaults(context.Background()))
	return NewEvents(s), s
}

func createEvent(t *testing.T, ev *Events, title string) model.EventRecord {
	t.Helper()
	e, err := ev.UpsertEvent(context.Background(), EventDraft{Title: ptr(title)})
	require.NoError(t, err)
	return e
}

func TestUpsertEvent_CreatesWithFreshID(t *testing.T) {
	ev, _ := newEvents(t)
	a := createEvent(t, ev, "Wedding")
	b := createEvent(t, ev, "Wedding")

	assert.True(t, strings.HasPrefix(a.ID, "ev_"))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Wedding", a.Title)
	assert.Equal(t, 0, a.Likes())
	assert.Equal(t, int64(0), a.Views)
	assert.Empty(t, a.Chat)
}

func TestUpsertEvent_UnknownIDCreates(t *testing.T) {
	ev, _ := newEvents(t)
	e, err := ev.UpsertEvent(context.Background(), EventDraft{ID: "ev_missing", Title: ptr("Gala")})
	require.NoError(t, err)
	assert.NotEqual(t, "ev_missing", e.ID)
}

func TestUpsertEvent_MergeKeepsUnsetFields(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	e, err := ev.UpsertEvent(ctx, EventDraft{
		Title:        ptr("Wedding"),
		Venue:        ptr("Fort Road Hall"),
		PlayerAspect: ptr("9:16"),
		Theme:        ptr("gold"),
		Options:      &OptionsDraft{Chat: ptr(true), Featured: ptr(true)},
	})
	require.NoError(t, err)
	_, err = ev.RecordView(ctx, e.ID)
	require.NoError(t, err)
	_, err = ev.ToggleLike(ctx, e.ID, "Asha")
	require.NoError(t, err)

	got, err := ev.UpsertEvent(ctx, EventDraft{
		ID:      e.ID,
		Title:   ptr("Wedding Reception"),
		Theme:   ptr(""),
		Options: &OptionsDraft{Featured: ptr(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Wedding Reception", got.Title)
	assert.Equal(t, "Fort Road Hall", got.Venue)
	require.NotNil(t, got.PlayerAspect)
	assert.Equal(t, model.Aspect9x16, *got.PlayerAspect)
	assert.Nil(t, got.Theme)
	assert.True(t, got.Options.Chat)
	assert.False(t, got.Options.Featured)
	assert.Equal(t, int64(1), got.Views)
	assert.Equal(t, []string{"Asha"}, got.LikedBy)
}

func TestUpsertEvent_Validation(t *testing.T) {
	ctx := context.Background()
	ev, s := newEvents(t)
	e := createEvent(t, ev, "Wedding")
	_, err := ev.RecordView(ctx, e.ID)
	require.NoError(t, err)
	msg, err := ev.PostChatMessage(ctx, e.ID, "Asha", "congrats")
	require.NoError(t, err)
	before, err := s.Read(ctx)
	require.NoError(t, err)

	edited := msg
	edited.Text = "edited"
	cases := map[string]EventDraft{
		"bad date":        {ID: e.ID, Date: ptr("2026-02-14")},
		"impossible date": {ID: e.ID, Date: ptr("31-02-2026")},
		"bad aspect":      {ID: e.ID, PlayerAspect: ptr("3:2")},
		"lower views":     {ID: e.ID, Views: ptr(int64(0))},
		"duplicate likes": {ID: e.ID, LikedBy: &[]string{"Asha", " asha"}},
		"truncated chat":  {ID: e.ID, Chat: &[]model.ChatMessage{}},
		"rewritten chat":  {ID: e.ID, Chat: &[]model.ChatMessage{{Name: "Someone", Text: "edited"}}},
		"edited chat":     {ID: e.ID, Chat: &[]model.ChatMessage{edited, msg}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ev.UpsertEvent(ctx, d)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	after, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpsertEvent_ChatMayBeExtended(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	e := createEvent(t, ev, "Wedding")
	msg, err := ev.PostChatMessage(ctx, e.ID, "Asha", "congrats")
	require.NoError(t, err)

	extra := model.ChatMessage{Name: "Ravi", Text: "thanks", At: msg.At.Add(time.Minute)}
	got, err := ev.UpsertEvent(ctx, EventDraft{ID: e.ID, Chat: &[]model.ChatMessage{msg, extra}})
	require.NoError(t, err)
	require.Len(t, got.Chat, 2)
	assert.Equal(t, "congrats", got.Chat[0].Text)
	assert.Equal(t, "thanks", got.Chat[1].Text)
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	ev, s := newEvents(t)
	e := createEvent(t, ev, "Wedding")

	got, err := ev.UpdateEvent(ctx, e.ID, EventDraft{ID: "ignored", Title: ptr("Reception")})
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Reception", got.Title)

	require.NoError(t, ev.DeleteEvent(ctx, e.ID))
	_, err = ev.UpdateEvent(ctx, e.ID, EventDraft{Title: ptr("Back again")})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	c, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Events)
}

func TestRecordView_IsCountersOnly(t *testing.T) {
	ctx := context.Background()
	ev, s := newEvents(t)
	e := createEvent(t, ev, "Wedding")

	var got []store.Change
	s.OnCatalogChanged(func(ch store.Change) { got = append(got, ch) })
	_, err := ev.RecordView(ctx, e.ID)
	require.NoError(t, err)
	_, err = ev.ToggleLike(ctx, e.ID, "Asha")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[0].CountersOnly)
	assert.False(t, got[1].CountersOnly)
}

func TestToggleLike_DedupsNormalizedNames(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	e := createEvent(t, ev, "Wedding")

	got, err := ev.ToggleLike(ctx, e.ID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes())

	_, err = ev.ToggleLike(ctx, e.ID, "alice ")
	require.ErrorIs(t, err, apperr.ErrAlreadyLiked)

	got, err = ev.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes())
	assert.Equal(t, []string{"Alice"}, got.LikedBy)
}

func TestToggleLike_Errors(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	e := createEvent(t, ev, "Wedding")

	_, err := ev.ToggleLike(ctx, e.ID, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = ev.ToggleLike(ctx, "ev_nope", "Bob")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordView_CountsEveryCall(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	e := createEvent(t, ev, "Wedding")

	const n = 7
	for i := 0; i < n; i++ {
		_, err := ev.RecordView(ctx, e.ID)
		require.NoError(t, err)
	}
	got, err := ev.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.Views)
}

func TestDeleteEvent_ThenRecordViewIsNotFound(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	e := createEvent(t, ev, "Wedding")

	require.NoError(t, ev.DeleteEvent(ctx, e.ID))
	_, err := ev.RecordView(ctx, e.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, ev.DeleteEvent(ctx, e.ID), apperr.ErrNotFound)
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	createEvent(t, ev, "One")
	createEvent(t, ev, "Two")

	n, err := ev.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := ev.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostChatMessage(t *testing.T) {
	ctx := context.Background()
	ev, s := newEvents(t)
	e := createEvent(t, ev, "Wedding")
	at := time.Date(2026, 2, 14, 18, 30, 0, 0, time.UTC)
	ev.now = func() time.Time { return at }

	before, err := s.Read(ctx)
	require.NoError(t, err)
	_, err = ev.PostChatMessage(ctx, e.ID, "", "hi")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = ev.PostChatMessage(ctx, e.ID, "Asha", "  ")
	require.ErrorIs(t, err, apperr.ErrValidation)
	after, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	msg, err := ev.PostChatMessage(ctx, e.ID, " Asha ", "congrats!")
	require.NoError(t, err)
	assert.Equal(t, model.ChatMessage{Name: "Asha", Text: "congrats!", At: at}, msg)

	chat, err := ev.Chat(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.ChatMessage{msg}, chat)
}

func TestList_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	_, err := ev.UpsertEvent(ctx, EventDraft{Title: ptr("Late"), Date: ptr("01-03-2026")})
	require.NoError(t, err)
	_, err = ev.UpsertEvent(ctx, EventDraft{Title: ptr("Early"), Date: ptr("15-01-2026"), Venue: ptr("Lake View")})
	require.NoError(t, err)
	_, err = ev.UpsertEvent(ctx, EventDraft{Title: ptr("Undated")})
	require.NoError(t, err)

	all, err := ev.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Undated", "Early", "Late"}, []string{all[0].Title, all[1].Title, all[2].Title})

	byText, err := ev.List(ctx, Filter{Text: "lake"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, "Early", byText[0].Title)

	byDate, err := ev.List(ctx, Filter{Date: "01-03-2026"})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "Late", byDate[0].Title)
}

func TestList_When(t *testing.T) {
	ctx := context.Background()
	ev, _ := newEvents(t)
	ev.now = func() time.Time { return time.Date(2026, 2, 1, 18, 30, 0, 0, time.UTC) }
	for title, date := range map[string]string{"Past": "31-01-2026", "Today": "01-02-2026", "Next": "02-02-2026"} {
		_, err := ev.UpsertEvent(ctx, EventDraft{Title: ptr(title), Date: ptr(date)})
		require.NoError(t, err)
	}
	createEvent(t, ev, "Undated")

	titles := func(es []model.EventRecord) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.Title)
		}
		return out
	}

	upcoming, err := ev.List(ctx, Filter{When: "upcoming"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Today", "Next"}, titles(upcoming))

	past, err := ev.List(ctx, Filter{When: "PAST"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Past"}, titles(past))

	anyDate, err := ev.List(ctx, Filter{When: "any"})
	require.NoError(t, err)
	assert.Len(t, anyDate, 4)

	_, err = ev.List(ctx, Filter{When: "tomorrow"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPaginate(t *testing.T) {
	events := make([]model.EventRecord, 5)
	for i := range events {
		events[i].ID = string(rune('a' + i))
	}

	p := Paginate(events, 2, 2)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, []string{"c", "d"}, []string{p.Items[0].ID, p.Items[1].ID})

	p = Paginate(events, 3, 2)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "e", p.Items[0].ID)

	assert.Empty(t, Paginate(events, 9, 2).Items)
	assert.Len(t, Paginate(events, 0, 0).Items, 5)
	assert.Equal(t, MaxPageSize, Paginate(events, 1, 1000).PageSize)
}
