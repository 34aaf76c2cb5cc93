package client

import (
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

func (h *Handler) RegisterRoutes(apiGroup *echo.Group) {
	staff := auth.RequireRole(
		accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator,
		accesscontrol.RoleClinicalDirector, accesscontrol.RoleSupervisor,
		accesscontrol.RoleClinician, accesscontrol.RoleIntern,
		accesscontrol.RoleBillingStaff, accesscontrol.RoleOfficeManager,
		accesscontrol.RoleFrontDesk, accesscontrol.RoleScheduler, accesscontrol.RoleReceptionist,
	)
	write := auth.RequireRole(
		accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator,
		accesscontrol.RoleClinicalDirector, accesscontrol.RoleSupervisor,
		accesscontrol.RoleClinician, accesscontrol.RoleFrontDesk,
	)

	read := apiGroup.Group("/clients", staff)
	read.GET("", h.List)
	read.GET("/:id", h.Get)

	w := apiGroup.Group("/clients", write)
	w.POST("", h.Create)
	w.PUT("/:id", h.Update)
	w.POST("/:id/discharge", h.Discharge)
}

type createRequest struct {
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	DateOfBirth          *string   `json:"dateOfBirth"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone"`
	PrimaryTherapistID   uuid.UUID `json:"primaryTherapistId"`
	SecondaryTherapistID uuid.UUID `json:"secondaryTherapistId"`
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
	in := CreateInput{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Phone:                req.Phone,
		PrimaryTherapistID:   req.PrimaryTherapistID,
		SecondaryTherapistID: req.SecondaryTherapistID,
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return err
		}
		in.DateOfBirth = &dob
	}
	created, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return api.Created(c, created)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var f Filters
	if v := c.QueryParam("status"); v != "" {
		st := ClientStatus(v)
		if !st.Valid() {
			return apperror.BadRequest("invalid status %q", v)
		}
		f.Status = st
	}
	if v := c.QueryParam("therapistId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.BadRequest("invalid therapistId")
		}
		f.TherapistID = &id
	}
	f.Search = c.QueryParam("search")

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
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("invalid id")
	}
	cl, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, cl)
}

type updateRequest struct {
	FirstName            *string       `json:"firstName"`
	LastName             *string       `json:"lastName"`
	DateOfBirth          *string       `json:"dateOfBirth"`
	Email                *string       `json:"email"`
	Phone                *string       `json:"phone"`
	Status               *ClientStatus `json:"status"`
	PrimaryTherapistID   *uuid.UUID    `json:"primaryTherapistId"`
	SecondaryTherapistID *uuid.UUID    `json:"secondaryTherapistId"`
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
	in := UpdateInput{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Phone:                req.Phone,
		Status:               req.Status,
		PrimaryTherapistID:   req.PrimaryTherapistID,
		SecondaryTherapistID: req.SecondaryTherapistID,
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return err
		}
		in.DateOfBirth = &dob
	}
	cl, err := h.svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return err
	}
	return api.OK(c, cl)
}

func (h *Handler) Discharge(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("invalid id")
	}
	cl, err := h.svc.Discharge(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, cl)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperror.BadRequest("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}
