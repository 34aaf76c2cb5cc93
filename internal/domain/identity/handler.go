package identity

import (
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

func (h *Handler) RegisterRoutes(apiGroup *echo.Group) {
	staff := auth.RequireRole(
		accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator,
		accesscontrol.RoleClinicalDirector, accesscontrol.RoleSupervisor,
		accesscontrol.RoleClinician, accesscontrol.RoleIntern,
		accesscontrol.RoleBillingStaff, accesscontrol.RoleOfficeManager,
		accesscontrol.RoleFrontDesk, accesscontrol.RoleScheduler, accesscontrol.RoleReceptionist,
	)
	admin := auth.RequireRole(accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator)

	read := apiGroup.Group("/users", staff)
	read.GET("", h.List)
	read.GET("/:id", h.Get)
	read.GET("/:id/supervisees", h.Supervisees)

	write := apiGroup.Group("/users", admin)
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
	write.PUT("/:id/supervisor", h.AssignSupervisor)
}

type createRequest struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Roles        []string   `json:"roles"`
	SupervisorID *uuid.UUID `json:"supervisorId"`
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
	u, err := h.svc.Create(c.Request().Context(), caller, CreateInput{
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		Roles:        req.Roles,
		SupervisorID: req.SupervisorID,
	})
	if err != nil {
		return err
	}
	return api.Created(c, u)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, p.Limit, p.Offset)
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
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, u)
}

type updateRequest struct {
	Name   *string  `json:"name"`
	Email  *string  `json:"email"`
	Role   *string  `json:"role"`
	Roles  []string `json:"roles"`
	Active *bool    `json:"active"`
}

func (h *Handler) Update(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("invalid id")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	u, err := h.svc.Update(c.Request().Context(), caller, id, UpdateInput{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Roles:  req.Roles,
		Active: req.Active,
	})
	if err != nil {
		return err
	}
	return api.OK(c, u)
}

type assignSupervisorRequest struct {
	SupervisorID *uuid.UUID `json:"supervisorId"`
}

func (h *Handler) AssignSupervisor(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("invalid id")
	}
	var req assignSupervisorRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	u, err := h.svc.AssignSupervisor(c.Request().Context(), caller, id, req.SupervisorID)
	if err != nil {
		return err
	}
	return api.OK(c, u)
}

func (h *Handler) Supervisees(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("invalid id")
	}
	items, err := h.svc.Supervisees(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, items)
}
