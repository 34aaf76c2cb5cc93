package billing

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
	billing := auth.RequireRole(
		accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator,
		accesscontrol.RoleBillingStaff, accesscontrol.RoleOfficeManager,
		accesscontrol.RoleClinicalDirector, accesscontrol.RoleSupervisor,
		accesscontrol.RoleClinician, accesscontrol.RoleIntern,
	)

	g := apiGroup.Group("/charges", billing)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus)
	apiGroup.GET("/clients/:clientId/charges", h.ListByClient, billing)
}

type createRequest struct {
	ClientID      uuid.UUID  `json:"clientId"`
	AppointmentID *uuid.UUID `json:"appointmentId"`
	AmountCents   int64      `json:"amountCents"`
	CPTCode       string     `json:"cptCode"`
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
	charge, err := h.svc.Create(c.Request().Context(), caller, CreateInput{
		ClientID:      req.ClientID,
		AppointmentID: req.AppointmentID,
		AmountCents:   req.AmountCents,
		CPTCode:       req.CPTCode,
	})
	if err != nil {
		return err
	}
	return api.Created(c, charge)
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
	charge, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, charge)
}

func (h *Handler) ListByClient(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		return apperror.BadRequest("invalid clientId")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByClient(c.Request().Context(), caller, clientID, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return api.OK(c, pagination.NewResponse(items, total, p))
}

type statusRequest struct {
	Status ChargeStatus `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.BadRequest("invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	charge, err := h.svc.UpdateStatus(c.Request().Context(), caller, id, req.Status)
	if err != nil {
		return err
	}
	return api.OK(c, charge)
}
