package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-showcase/internal/assets"
	"github.com/iliyamo/event-showcase/internal/credential"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/service"
	"github.com/iliyamo/event-showcase/internal/store"
)

// AdminHandler serves the curated admin surface. Every route sits behind
// middleware.SessionAuth.
type AdminHandler struct {
	Store     *store.Store
	Events    *service.Events
	Company   *service.Company
	Creds     *credential.Store
	Assets    assets.Store
	MaxUpload int64
}

type contactReq struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type rotateReq struct {
	CurrentUsername string `json:"current_username"`
	CurrentPassword string `json:"current_password"`
	NewUsername     string `json:"new_username"`
	NewPassword     string `json:"new_password"`
}

// GetCatalog returns the whole catalog including its version.
func (h *AdminHandler) GetCatalog(c echo.Context) error {
	cat, err := h.Store.Read(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

// CreateEvent always creates; an id in the body is ignored.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var d service.EventDraft
	if err := c.Bind(&d); err != nil {
		return badRequest(c, "invalid body")
	}
	d.ID = ""
	e, err := h.Events.UpsertEvent(c.Request().Context(), d)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newEventView(e, h.defaultAspect(c)))
}

// UpdateEvent merges the body into an existing event.
func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	var d service.EventDraft
	if err := c.Bind(&d); err != nil {
		return badRequest(c, "invalid body")
	}
	// PUT never creates: an unknown id is a 404.
	e, err := h.Events.UpdateEvent(c.Request().Context(), c.Param("id"), d)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newEventView(e, h.defaultAspect(c)))
}

func (h *AdminHandler) defaultAspect(c echo.Context) model.Aspect {
	p, err := h.Company.Profile(c.Request().Context())
	if err != nil {
		return model.Aspect16x9
	}
	return p.DefaultPlayerAspect
}

func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	if err := h.Events.DeleteEvent(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) DeleteAllEvents(c echo.Context) error {
	n, err := h.Events.DeleteAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// UpdateCompany merges the body into the company profile.
func (h *AdminHandler) UpdateCompany(c echo.Context) error {
	var d service.CompanyDraft
	if err := c.Bind(&d); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Company.Update(c.Request().Context(), d)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) AddContact(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Company.AddContact(c.Request().Context(), req.Label, req.Value)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminHandler) RemoveContact(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return badRequest(c, "invalid index")
	}
	p, err := h.Company.RemoveContact(c.Request().Context(), idx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// RotateCredentials replaces the admin credential after checking the
// current one. The caller's session stays valid.
func (h *AdminHandler) RotateCredentials(c echo.Context) error {
	var req rotateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.NewUsername == "" && req.NewPassword == "" {
		return badRequest(c, "new username or password required")
	}
	cred, err := h.Creds.Rotate(c.Request().Context(), credential.Rotation{
		CurrentUsername: req.CurrentUsername,
		CurrentPassword: req.CurrentPassword,
		NewUsername:     req.NewUsername,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"username": cred.Username, "rotated_at": cred.RotatedAt})
}

// UploadAsset stores the multipart "file" field and returns a reference
// to put into the catalog.
func (h *AdminHandler) UploadAsset(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file field required")
	}
	if h.MaxUpload > 0 && fh.Size > h.MaxUpload {
		return badRequest(c, "file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable upload")
	}
	defer f.Close()
	limit := h.MaxUpload
	if limit <= 0 {
		limit = 32 << 20
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return badRequest(c, "unreadable upload")
	}
	ref, err := h.Assets.Put(c.Request().Context(), fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"ref": ref})
}
