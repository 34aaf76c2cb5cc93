package scheduling

import (
	"context"
	"net/http"
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
	calendar := auth.RequireRole(
		accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator,
		accesscontrol.RoleClinicalDirector, accesscontrol.RoleSupervisor,
		accesscontrol.RoleClinician, accesscontrol.RoleIntern,
		accesscontrol.RoleBillingStaff, accesscontrol.RoleOfficeManager,
		accesscontrol.RoleFrontDesk, accesscontrol.RoleScheduler, accesscontrol.RoleReceptionist,
	)
	admin := auth.RequireRole(accesscontrol.RoleSuperAdmin, accesscontrol.RoleAdministrator)

	g := apiGroup.Group("/appointments", calendar)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/validate-slot", h.ValidateSlot)
	g.POST("/recurring", h.CreateRecurring)
	g.GET("/series/:parentId", h.GetSeries)
	g.PUT("/series/:parentId", h.UpdateSeries)
	g.POST("/series/:parentId/cancel", h.CancelSeries)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PUT("/:id/reschedule", h.Reschedule)
	g.POST("/:id/check-in", h.CheckIn)
	g.POST("/:id/start-session", h.StartSession)
	g.POST("/:id/check-out", h.CheckOut)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/no-show", h.MarkNoShow)

	apiGroup.DELETE("/appointments/:id", h.Delete, admin)
}

type createRequest struct {
	ClientID        uuid.UUID   `json:"clientId"`
	ClinicianID     uuid.UUID   `json:"clinicianId"`
	IsGroup         bool        `json:"isGroup"`
	GroupClientIDs  []uuid.UUID `json:"clientIds"`
	Date            string      `json:"date"`
	StartTime       string      `json:"startTime"`
	EndTime         string      `json:"endTime"`
	Type            string      `json:"type"`
	ServiceLocation string      `json:"serviceLocation"`
	Notes           string      `json:"notes"`
}

func (r createRequest) toInput() (CreateInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		ClientID:        r.ClientID,
		ClinicianID:     r.ClinicianID,
		IsGroup:         r.IsGroup,
		GroupClientIDs:  r.GroupClientIDs,
		Date:            date,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Type:            r.Type,
		ServiceLocation: r.ServiceLocation,
		Notes:           r.Notes,
	}, nil
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
	in, err := req.toInput()
	if err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return api.Created(c, a)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	f, err := filtersFromQuery(c)
	if err != nil {
		return err
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
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, a)
}

type updateRequest struct {
	Date            *string `json:"date"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	Type            *string `json:"type"`
	ServiceLocation *string `json:"serviceLocation"`
	Notes           *string `json:"notes"`
}

func (h *Handler) Update(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	in := UpdateInput{
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Type:            req.Type,
		ServiceLocation: req.ServiceLocation,
		Notes:           req.Notes,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return err
		}
		in.Date = &date
	}
	a, err := h.svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return err
	}
	return api.OK(c, a)
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	a, err := h.svc.Reschedule(c.Request().Context(), caller, id, date, req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	return api.OK(c, a)
}

type validateSlotRequest struct {
	ClinicianID   uuid.UUID  `json:"clinicianId"`
	Date          string     `json:"date"`
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
	ExcludeApptID *uuid.UUID `json:"excludeAppointmentId"`
}

func (h *Handler) ValidateSlot(c echo.Context) error {
	var req validateSlotRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	v, err := h.svc.ValidateTimeSlot(c.Request().Context(), req.ClinicianID, date, req.StartTime, req.EndTime, req.ExcludeApptID)
	if err != nil {
		return err
	}
	return api.OK(c, v)
}

func (h *Handler) CheckIn(c echo.Context) error {
	return h.statusOp(c, h.svc.CheckIn)
}

func (h *Handler) StartSession(c echo.Context) error {
	return h.statusOp(c, h.svc.StartSession)
}

func (h *Handler) CheckOut(c echo.Context) error {
	return h.statusOp(c, h.svc.CheckOut)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.statusOp(c, h.svc.MarkNoShow)
}

func (h *Handler) statusOp(c echo.Context, op func(context.Context, accesscontrol.Caller, uuid.UUID) (*Appointment, error)) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := op(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return api.OK(c, a)
}

type cancelRequest struct {
	Reason string `json:"reason"`
	Fee    bool   `json:"cancellationFee"`
}

func (h *Handler) Cancel(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	a, err := h.svc.Cancel(c.Request().Context(), caller, id, req.Reason, req.Fee)
	if err != nil {
		return err
	}
	return api.OK(c, a)
}

func (h *Handler) Delete(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type recurringRequest struct {
	createRequest
	Recurrence struct {
		Frequency  Frequency `json:"frequency"`
		DaysOfWeek []string  `json:"daysOfWeek"`
		EndDate    *string   `json:"endDate"`
		Count      int       `json:"count"`
	} `json:"recurrence"`
}

func (h *Handler) CreateRecurring(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req recurringRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	in, err := req.toInput()
	if err != nil {
		return err
	}
	pattern := RecurrencePattern{
		Frequency:  req.Recurrence.Frequency,
		DaysOfWeek: req.Recurrence.DaysOfWeek,
		Count:      req.Recurrence.Count,
	}
	if req.Recurrence.EndDate != nil {
		end, err := parseDate(*req.Recurrence.EndDate)
		if err != nil {
			return err
		}
		pattern.EndDate = &end
	}
	result, err := h.svc.CreateRecurring(c.Request().Context(), caller, in, pattern)
	if err != nil {
		return err
	}
	return api.Created(c, result)
}

func (h *Handler) GetSeries(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	appts, err := h.svc.Series(c.Request().Context(), caller, c.Param("parentId"))
	if err != nil {
		return err
	}
	return api.OK(c, appts)
}

type seriesUpdateRequest struct {
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	Type            *string `json:"type"`
	ServiceLocation *string `json:"serviceLocation"`
	Notes           *string `json:"notes"`
}

func (h *Handler) UpdateSeries(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req seriesUpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	updated, err := h.svc.UpdateEntireSeries(c.Request().Context(), caller, c.Param("parentId"), SeriesUpdateInput{
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Type:            req.Type,
		ServiceLocation: req.ServiceLocation,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	return api.OK(c, map[string]int{"updated": updated})
}

type seriesCancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelSeries(c echo.Context) error {
	caller, err := accesscontrol.CallerFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req seriesCancelRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	cancelled, err := h.svc.CancelEntireSeries(c.Request().Context(), caller, c.Param("parentId"), req.Reason)
	if err != nil {
		return err
	}
	return api.OK(c, map[string]int{"cancelled": cancelled})
}

func filtersFromQuery(c echo.Context) (Filters, error) {
	var f Filters
	if v := c.QueryParam("clinicianId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperror.BadRequest("invalid clinicianId")
		}
		f.ClinicianID = &id
	}
	if v := c.QueryParam("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperror.BadRequest("invalid clientId")
		}
		f.ClientID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		st := Status(v)
		if !st.Valid() {
			return f, apperror.BadRequest("invalid status %q", v)
		}
		f.Status = st
	}
	f.Type = c.QueryParam("type")
	if v := c.QueryParam("dateFrom"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.DateFrom = &d
	}
	if v := c.QueryParam("dateTo"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.DateTo = &d
	}
	return f, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid %s", name)
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
