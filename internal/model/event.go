package model

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EventOptions toggles optional features of an event page.
type EventOptions struct {
	Chat      bool `json:"chat"`
	Featured  bool `json:"featured"`
	Countdown bool `json:"countdown"`
	Poster    bool `json:"poster"`
	Scheduled bool `json:"scheduled"`
}

// ChatMessage is one entry of an event's append-only chat log.
type ChatMessage struct {
	Name string    `json:"name"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// EventRecord is one showcased event. ID is assigned at creation and
// never changes. Views only grows, LikedBy never holds two names that
// normalize to the same value, and Chat is append-only.
type EventRecord struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Client       string        `json:"client"`
	Date         string        `json:"date"` // DD-MM-YYYY
	Time         string        `json:"time"`
	Venue        string        `json:"venue"`
	AdText       string        `json:"adText"`
	YouTubeRef   string        `json:"youtubeRef"`
	VODs         []string      `json:"vods"`
	PlayerAspect *Aspect       `json:"playerAspect"`
	BgColor      string        `json:"bgColor"`
	Theme        *string       `json:"theme"`
	Options      EventOptions  `json:"options"`
	Images       []string      `json:"images"`
	Thumbnail    *string       `json:"thumbnail"`
	Views        int64         `json:"views"`
	LikedBy      []string      `json:"likedBy"`
	Chat         []ChatMessage `json:"chat"`
}

// Likes is the number of distinct names that liked the event.
func (e *EventRecord) Likes() int { return len(e.LikedBy) }

// HasLiked reports whether a name equal to displayName after
// normalization already liked the event.
func (e *EventRecord) HasLiked(displayName string) bool {
	n := NormalizeName(displayName)
	for _, existing := range e.LikedBy {
		if NormalizeName(existing) == n {
			return true
		}
	}
	return false
}

// Aspect resolves the player aspect, falling back to def when the event
// has no override.
func (e *EventRecord) Aspect(def Aspect) Aspect {
	if e.PlayerAspect != nil && e.PlayerAspect.Valid() {
		return *e.PlayerAspect
	}
	if def.Valid() {
		return def
	}
	return Aspect16x9
}

// ThumbnailRef returns the thumbnail, or the first gallery image.
func (e *EventRecord) ThumbnailRef() string {
	if e.Thumbnail != nil && *e.Thumbnail != "" {
		return *e.Thumbnail
	}
	if len(e.Images) > 0 {
		return e.Images[0]
	}
	return ""
}

// Clone returns a deep copy of e.
func (e EventRecord) Clone() EventRecord {
	out := e
	out.VODs = cloneSlice(e.VODs)
	out.Images = cloneSlice(e.Images)
	out.LikedBy = cloneSlice(e.LikedBy)
	out.Chat = cloneSlice(e.Chat)
	out.PlayerAspect = clonePtr(e.PlayerAspect)
	out.Theme = clonePtr(e.Theme)
	out.Thumbnail = clonePtr(e.Thumbnail)
	return out
}

// NormalizeName folds a display name for like dedup: surrounding
// whitespace is dropped and case is folded.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseEventDate parses a DD-MM-YYYY date. ok is false for empty or
// malformed input.
func ParseEventDate(s string) (t time.Time, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	d, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	y, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || d < 1 || d > 31 || m < 1 || m > 12 || y < 1 {
		return time.Time{}, false
	}
	t = time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31-02 into March; reject that.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

var embedPath = regexp.MustCompile(`/embed/([^/?]+)`)

// YouTubeID extracts the video id from watch, short and embed URLs.
func YouTubeID(ref string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "youtu.be"):
		id := strings.Trim(u.Path, "/")
		return id, id != ""
	case strings.Contains(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v, true
		}
		if m := embedPath.FindStringSubmatch(u.Path); m != nil {
			return m[1], true
		}
	}
	return "", false
}
