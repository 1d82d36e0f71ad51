package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/booking"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	date, err := time.Parse(booking.DateLayout, body.ScheduledDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_date must be YYYY-MM-DD"})
		return
	}

	req := booking.CreateRequest{
		ProviderID:          body.ProviderID,
		ScheduledDate:       date,
		ScheduledTime:       body.ScheduledTime,
		DurationHours:       body.DurationHours,
		ServiceType:         booking.ServiceType(body.ServiceType),
		Address:             body.Address,
		City:                body.City,
		State:               body.State,
		ZipCode:             body.ZipCode,
		SpecialInstructions: body.SpecialInstructions,
	}

	b, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := booking.Filter{
		CustomerID: req.CustomerID,
		ProviderID: req.ProviderID,
		Status:     booking.Status(req.Status),
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortOrder:  req.SortOrder,
	}

	list, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]BookingResponse, len(list))
	for i, b := range list {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) History(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		items[i] = NewHistoryResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Confirm(c *gin.Context) {
	h.simple(c, h.service.Confirm)
}

func (h *Handler) Start(c *gin.Context) {
	h.simple(c, h.service.Start)
}

func (h *Handler) Complete(c *gin.Context) {
	h.simple(c, h.service.Complete)
}

func (h *Handler) ConfirmCompletion(c *gin.Context) {
	h.simple(c, h.service.ConfirmCompletion)
}

func (h *Handler) Decline(c *gin.Context) {
	h.withReason(c, h.service.Decline)
}

func (h *Handler) Dispute(c *gin.Context) {
	h.withReason(c, h.service.Dispute)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.withReason(c, h.service.Cancel)
}

func (h *Handler) Reschedule(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}

	var body RescheduleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	req := booking.RescheduleRequest{
		ScheduledTime:       body.ScheduledTime,
		DurationHours:       body.DurationHours,
		SpecialInstructions: body.SpecialInstructions,
	}
	if body.ScheduledDate != nil {
		date, err := time.Parse(booking.DateLayout, *body.ScheduledDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_date must be YYYY-MM-DD"})
			return
		}
		req.ScheduledDate = &date
	}

	b, err := h.service.Reschedule(c.Request.Context(), actor, id, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) simple(c *gin.Context, fn func(ctx context.Context, actor auth.Actor, id string) (*booking.Booking, error)) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}

	b, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) withReason(c *gin.Context, fn func(ctx context.Context, actor auth.Actor, id, reason string) (*booking.Booking, error)) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}

	// The body is optional.
	var body ReasonBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := fn(c.Request.Context(), actor, id, body.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// target resolves the caller and the :id path parameter, writing the error response itself.
func (h *Handler) target(c *gin.Context) (auth.Actor, string, bool) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return auth.Actor{}, "", false
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id", "details": err.Error()})
		return auth.Actor{}, "", false
	}
	return actor, uri.ID, true
}

// fail renders service errors. A precondition failure carries the booking's current
// status so the client can decide whether to refetch.
func (h *Handler) fail(c *gin.Context, err error) {
	var te *booking.TransitionError
	if errors.As(err, &te) {
		response.Error(c, apperror.WithDetails(booking.ErrPreconditionFailed, map[string]any{
			"current_status": te.Current,
			"transition":     te.Transition,
		}))
		return
	}
	response.Error(c, err)
}
