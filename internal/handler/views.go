package handler

import "github.com/iliyamo/event-showcase/internal/model"

// eventView is an event as served over HTTP: the stored record plus the
// derived fields a client needs to render it.
type eventView struct {
	model.EventRecord
	Likes        int          `json:"likes"`
	Aspect       model.Aspect `json:"aspect"`
	AspectPad    float64      `json:"aspectPaddingPercent"`
	YouTubeID    string       `json:"youtubeId,omitempty"`
	ThumbnailRef string       `json:"thumbnailRef,omitempty"`
}

func newEventView(e model.EventRecord, def model.Aspect) eventView {
	a := e.Aspect(def)
	id, _ := model.YouTubeID(e.YouTubeRef)
	return eventView{
		EventRecord:  e,
		Likes:        e.Likes(),
		Aspect:       a,
		AspectPad:    a.PaddingPercent(),
		YouTubeID:    id,
		ThumbnailRef: e.ThumbnailRef(),
	}
}

func newEventViews(events []model.EventRecord, def model.Aspect) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, newEventView(e, def))
	}
	return out
}
