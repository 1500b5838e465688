package service

import (
	"strings"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/model"
)

// OptionsDraft carries the event toggles a draft wants to change.
type OptionsDraft struct {
	Chat      *bool `json:"chat,omitempty"`
	Featured  *bool `json:"featured,omitempty"`
	Countdown *bool `json:"countdown,omitempty"`
	Poster    *bool `json:"poster,omitempty"`
	Scheduled *bool `json:"scheduled,omitempty"`
}

// EventDraft is a partial event. Nil fields are left as they are on an
// existing record and take their zero value on a new one.
//
// PlayerAspect, Theme and Thumbnail are cleared by an empty string;
// PlayerAspect also accepts "default" for that.
type EventDraft struct {
	ID           string               `json:"id,omitempty"`
	Title        *string              `json:"title,omitempty"`
	Client       *string              `json:"client,omitempty"`
	Date         *string              `json:"date,omitempty"`
	Time         *string              `json:"time,omitempty"`
	Venue        *string              `json:"venue,omitempty"`
	AdText       *string              `json:"adText,omitempty"`
	YouTubeRef   *string              `json:"youtubeRef,omitempty"`
	VODs         *[]string            `json:"vods,omitempty"`
	PlayerAspect *string              `json:"playerAspect,omitempty"`
	BgColor      *string              `json:"bgColor,omitempty"`
	Theme        *string              `json:"theme,omitempty"`
	Options      *OptionsDraft        `json:"options,omitempty"`
	Images       *[]string            `json:"images,omitempty"`
	Thumbnail    *string              `json:"thumbnail,omitempty"`
	Views        *int64               `json:"views,omitempty"`
	LikedBy      *[]string            `json:"likedBy,omitempty"`
	Chat         *[]model.ChatMessage `json:"chat,omitempty"`
}

// validate checks the fields that carry a format.
func (d *EventDraft) validate() error {
	if d.Date != nil && strings.TrimSpace(*d.Date) != "" {
		if _, ok := model.ParseEventDate(*d.Date); !ok {
			return apperr.Validation("date %q is not DD-MM-YYYY", *d.Date)
		}
	}
	if d.PlayerAspect != nil {
		a := strings.TrimSpace(*d.PlayerAspect)
		if a != "" && a != "default" && !model.Aspect(a).Valid() {
			return apperr.Validation("unsupported player aspect %q", a)
		}
	}
	if d.Views != nil && *d.Views < 0 {
		return apperr.Validation("views cannot be negative")
	}
	if d.LikedBy != nil {
		seen := make(map[string]bool, len(*d.LikedBy))
		for _, name := range *d.LikedBy {
			n := model.NormalizeName(name)
			if n == "" {
				return apperr.Validation("likedBy contains an empty name")
			}
			if seen[n] {
				return apperr.Validation("likedBy contains %q twice", name)
			}
			seen[n] = true
		}
	}
	return nil
}

// apply merges the set fields of d into e.
func (d *EventDraft) apply(e *model.EventRecord) error {
	setString(&e.Title, d.Title)
	setString(&e.Client, d.Client)
	setString(&e.Date, d.Date)
	setString(&e.Time, d.Time)
	setString(&e.Venue, d.Venue)
	setString(&e.AdText, d.AdText)
	setString(&e.YouTubeRef, d.YouTubeRef)
	setString(&e.BgColor, d.BgColor)
	if d.VODs != nil {
		e.VODs = append([]string(nil), *d.VODs...)
	}
	if d.Images != nil {
		e.Images = append([]string(nil), *d.Images...)
	}
	if d.PlayerAspect != nil {
		a := strings.TrimSpace(*d.PlayerAspect)
		if a == "" || a == "default" {
			e.PlayerAspect = nil
		} else {
			aspect := model.Aspect(a)
			e.PlayerAspect = &aspect
		}
	}
	e.Theme = optionalString(e.Theme, d.Theme)
	e.Thumbnail = optionalString(e.Thumbnail, d.Thumbnail)
	if o := d.Options; o != nil {
		setBool(&e.Options.Chat, o.Chat)
		setBool(&e.Options.Featured, o.Featured)
		setBool(&e.Options.Countdown, o.Countdown)
		setBool(&e.Options.Poster, o.Poster)
		setBool(&e.Options.Scheduled, o.Scheduled)
	}

	if d.Views != nil {
		if *d.Views < e.Views {
			return apperr.Validation("views cannot go down from %d to %d", e.Views, *d.Views)
		}
		e.Views = *d.Views
	}
	if d.LikedBy != nil {
		e.LikedBy = append([]string(nil), *d.LikedBy...)
	}
	if d.Chat != nil {
		if !chatExtends(e.Chat, *d.Chat) {
			return apperr.Validation("chat history can only be appended to")
		}
		e.Chat = append([]model.ChatMessage(nil), *d.Chat...)
	}
	return nil
}

// chatExtends reports whether next keeps every message of cur, unchanged
// and in order, as its prefix.
func chatExtends(cur, next []model.ChatMessage) bool {
	if len(next) < len(cur) {
		return false
	}
	for i, m := range cur {
		n := next[i]
		if m.Name != n.Name || m.Text != n.Text || !m.At.Equal(n.At) {
			return false
		}
	}
	return true
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// optionalString returns the new value of an optional field: cur when
// the draft leaves it alone, nil when the draft blanks it.
func optionalString(cur, v *string) *string {
	if v == nil {
		return cur
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// CompanyDraft is a partial company profile.
type CompanyDraft struct {
	Name                *string          `json:"name,omitempty"`
	LogoRef             *string          `json:"logoRef,omitempty"`
	WatermarkText       *string          `json:"watermarkText,omitempty"`
	IntroText           *string          `json:"introText,omitempty"`
	Contacts            *[]model.Contact `json:"contacts,omitempty"`
	DefaultPlayerAspect *string          `json:"defaultPlayerAspect,omitempty"`
	Landing             *LandingDraft    `json:"landing,omitempty"`
}

// LandingDraft is a partial landing copy block.
type LandingDraft struct {
	Heading         *string `json:"heading,omitempty"`
	Subtitle        *string `json:"subtitle,omitempty"`
	ProductsTitle   *string `json:"productsTitle,omitempty"`
	ProductsContent *string `json:"productsContent,omitempty"`
}

func (d *CompanyDraft) apply(p *model.CompanyProfile) error {
	if d.DefaultPlayerAspect != nil {
		a := model.Aspect(strings.TrimSpace(*d.DefaultPlayerAspect))
		if !a.Valid() {
			return apperr.Validation("unsupported player aspect %q", a)
		}
		p.DefaultPlayerAspect = a
	}
	if d.Contacts != nil {
		for _, c := range *d.Contacts {
			if strings.TrimSpace(c.Label) == "" || strings.TrimSpace(c.Value) == "" {
				return apperr.Validation("contacts need both a label and a value")
			}
		}
		p.Contacts = append([]model.Contact{}, *d.Contacts...)
	}
	setString(&p.Name, d.Name)
	setString(&p.LogoRef, d.LogoRef)
	setString(&p.WatermarkText, d.WatermarkText)
	setString(&p.IntroText, d.IntroText)
	if l := d.Landing; l != nil {
		setString(&p.Landing.Heading, l.Heading)
		setString(&p.Landing.Subtitle, l.Subtitle)
		setString(&p.Landing.ProductsTitle, l.ProductsTitle)
		setString(&p.Landing.ProductsContent, l.ProductsContent)
	}
	return nil
}
