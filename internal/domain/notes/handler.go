package notes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/api"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
	"github.com/mentalspace/practice-api/internal/platform/auth"
	"github.com/mentalspace/practice-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Billing roles have no route here; the resolver denies them note
// content as well.
func (h *Handler) RegisterRoutes(apiGroup *echo.Group) {
	clinical := auth.RequireRole(
		accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator,
		accesscontrol.RoleClinicalDirector, accesscontrol.RoleSupervisor,
		accesscontrol.RoleClinician, accesscontrol.RoleIntern,
	)

	g := apiGroup.Group("/notes", clinical)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.UpdateDraft)
	g.POST("/:id/sign", h.Sign)
	g.POST("/:id/cosign", h.Cosign)
	g.POST("/:id/amendments", h.Amend)
	g.GET("/:id/amendments", h.Amendments)
}

type createRequest struct {
	ClientID    uuid.UUID `json:"clientId"`
	Content     string    `json:"content"`
	SessionDate string    `json:"sessionDate"`
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	sessionDate, err := parseDate(req.SessionDate)
	if err != nil {
		return err
	}
	n, err := h.svc.Create(c.Request().Context(), caller, CreateInput{
		ClientID:    req.ClientID,
		Content:     req.Content,
		SessionDate: sessionDate,
	})
	if err != nil {
		return err
	}
	return api.Created(c, n)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var f Filters
	if v := c.QueryParam("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.BadRequest("invalid clientId")
		}
		f.ClientID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		f.Status = NoteStatus(v)
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, f, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return api.OK(c, pagination.NewResponse(items, total, p))
}

func (h *Handler) Get(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, n)
}

type updateRequest struct {
	Content     string  `json:"content"`
	SessionDate *string `json:"sessionDate"`
}

func (h *Handler) UpdateDraft(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	var sessionDate *time.Time
	if req.SessionDate != nil {
		d, err := parseDate(*req.SessionDate)
		if err != nil {
			return err
		}
		sessionDate = &d
	}
	n, err := h.svc.UpdateDraft(c.Request().Context(), caller, id, req.Content, sessionDate)
	if err != nil {
		return err
	}
	return api.OK(c, n)
}

func (h *Handler) Sign(c echo.Context) error {
	return h.lifecycleOp(c, h.svc.Sign)
}

func (h *Handler) Cosign(c echo.Context) error {
	return h.lifecycleOp(c, h.svc.Cosign)
}

func (h *Handler) lifecycleOp(c echo.Context, op func(context.Context, accesscontrol.Caller, uuid.UUID) (*ClinicalNote, error)) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	n, err := op(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, n)
}

type amendRequest struct {
	Content string `json:"content"`
}

func (h *Handler) Amend(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req amendRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	a, err := h.svc.Amend(c.Request().Context(), caller, id, req.Content)
	if err != nil {
		return err
	}
	return api.Created(c, a)
}

func (h *Handler) Amendments(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Amendments(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, items)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid id")
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperror.BadRequest("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}
