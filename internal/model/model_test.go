package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventDate(t *testing.T) {
	got, ok := ParseEventDate(" 29-02-2024 ")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "29-02-2023", "31-04-2026", "2026-01-02", "1-13-2026", "aa-bb-cccc", "01/02/2026"} {
		_, ok := ParseEventDate(bad)
		assert.False(t, ok, bad)
	}
}

func TestYouTubeID(t *testing.T) {
	cases := map[string]string{
		"https://youtu.be/abc123":                     "abc123",
		"https://www.youtube.com/watch?v=xyz&t=10":    "xyz",
		"https://youtube.com/embed/emb1?autoplay=1":   "emb1",
		"https://m.youtube.com/watch?feature=x&v=mob": "mob",
	}
	for ref, want := range cases {
		id, ok := YouTubeID(ref)
		assert.True(t, ok, ref)
		assert.Equal(t, want, id, ref)
	}
	for _, bad := range []string{"", "abc123", "https://vimeo.com/123", "https://youtube.com/channel/foo"} {
		_, ok := YouTubeID(bad)
		assert.False(t, ok, bad)
	}
}

func TestHasLikedIgnoresCaseAndSpace(t *testing.T) {
	e := EventRecord{LikedBy: []string{"Alice"}}
	assert.True(t, e.HasLiked("  alice"))
	assert.True(t, e.HasLiked("ALICE "))
	assert.False(t, e.HasLiked("Bob"))
	assert.Equal(t, 1, e.Likes())
}

func TestAspectFallback(t *testing.T) {
	square := Aspect1x1
	bogus := Aspect("21:9")

	assert.Equal(t, Aspect1x1, (&EventRecord{PlayerAspect: &square}).Aspect(Aspect4x3))
	assert.Equal(t, Aspect4x3, (&EventRecord{PlayerAspect: &bogus}).Aspect(Aspect4x3))
	assert.Equal(t, Aspect16x9, (&EventRecord{}).Aspect(""))

	assert.Equal(t, 56.25, Aspect16x9.PaddingPercent())
	assert.Equal(t, 56.25, Aspect9x16.PaddingPercent())
	assert.Equal(t, 75.0, Aspect4x3.PaddingPercent())
	assert.Equal(t, 100.0, Aspect1x1.PaddingPercent())
}

func TestThumbnailRef(t *testing.T) {
	thumb := "t.png"
	empty := ""
	assert.Equal(t, "t.png", (&EventRecord{Thumbnail: &thumb, Images: []string{"a.png"}}).ThumbnailRef())
	assert.Equal(t, "a.png", (&EventRecord{Thumbnail: &empty, Images: []string{"a.png"}}).ThumbnailRef())
	assert.Equal(t, "", (&EventRecord{}).ThumbnailRef())
}

func TestCatalogCloneIsDeep(t *testing.T) {
	theme := "dark"
	c := Catalog{
		Company: CompanyProfile{Contacts: []Contact{{Label: "Phone", Value: "1"}}},
		Events: []EventRecord{{
			ID:      "ev_1",
			Theme:   &theme,
			LikedBy: []string{"a"},
			Chat:    []ChatMessage{{Name: "n", Text: "t"}},
		}},
	}
	cp := c.Clone()
	cp.Company.Contacts[0].Value = "2"
	cp.Events[0].LikedBy[0] = "b"
	cp.Events[0].Chat[0].Text = "changed"
	*cp.Events[0].Theme = "light"

	assert.Equal(t, "1", c.Company.Contacts[0].Value)
	assert.Equal(t, "a", c.Events[0].LikedBy[0])
	assert.Equal(t, "t", c.Events[0].Chat[0].Text)
	assert.Equal(t, "dark", theme)
	assert.Equal(t, 0, c.Find("ev_1"))
	assert.Equal(t, -1, c.Find("ev_2"))
}
