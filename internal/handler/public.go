// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// Public handlers serve the catalog to anonymous visitors and accept the
// few writes a visitor may make: views, likes and chat.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/service"
)

// PublicHandler serves unauthenticated browsing.
type PublicHandler struct {
	Events  *service.Events
	Company *service.Company
}

func NewPublicHandler(ev *service.Events, co *service.Company) *PublicHandler {
	return &PublicHandler{Events: ev, Company: co}
}

type likeReq struct {
	Name string `json:"name"`
}

type chatReq struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (h *PublicHandler) defaultAspect(c echo.Context) model.Aspect {
	p, err := h.Company.Profile(c.Request().Context())
	if err != nil {
		return model.Aspect16x9
	}
	return p.DefaultPlayerAspect
}

// GetCompany returns the company profile.
func (h *PublicHandler) GetCompany(c echo.Context) error {
	p, err := h.Company.Profile(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListEvents lists events, optionally filtered by ?q= text, ?date=DD-MM-YYYY
// and ?when=upcoming|past|any. ?page and ?page_size window the result;
// without page_size every match is returned.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	events, err := h.Events.List(c.Request().Context(), service.Filter{
		Text: c.QueryParam("q"),
		Date: c.QueryParam("date"),
		When: c.QueryParam("when"),
	})
	if err != nil {
		return writeError(c, err)
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	p := service.Paginate(events, page, size)
	return c.JSON(http.StatusOK, echo.Map{
		"items":     newEventViews(p.Items, h.defaultAspect(c)),
		"total":     p.Total,
		"page":      p.Page,
		"page_size": p.PageSize,
	})
}

// GetEvent returns one event and counts the access as a view.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	e, err := h.Events.RecordView(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newEventView(e, h.defaultAspect(c)))
}

// Like records a like from the given display name.
func (h *PublicHandler) Like(c echo.Context) error {
	var req likeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	e, err := h.Events.ToggleLike(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"likes": e.Likes()})
}

// GetChat returns the chat log.
func (h *PublicHandler) GetChat(c echo.Context) error {
	msgs, err := h.Events.Chat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": msgs})
}

// PostChat appends a chat message.
func (h *PublicHandler) PostChat(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	msg, err := h.Events.PostChatMessage(c.Request().Context(), c.Param("id"), req.Name, req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}
