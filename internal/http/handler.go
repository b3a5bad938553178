package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"field-service/internal/http/middleware"
	"field-service/internal/model"
	"field-service/internal/repository"
	"field-service/internal/service"
)

type Handler struct {
	requestService   *service.RequestService
	availability     *service.AvailabilityService
	billingService   *service.BillingService
	categoryService  *service.CategoryService
	dashboardService *service.DashboardService
	log              zerolog.Logger
}

func NewHandler(
	requestService *service.RequestService,
	availability *service.AvailabilityService,
	billingService *service.BillingService,
	categoryService *service.CategoryService,
	dashboardService *service.DashboardService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		requestService:   requestService,
		availability:     availability,
		billingService:   billingService,
		categoryService:  categoryService,
		dashboardService: dashboardService,
		log:              log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/categories", h.listCategories)

	customer := protected.Group("/customer")
	{
		customer.POST("/requests", h.createRequest)
		customer.GET("/requests", h.listRequests)
		customer.GET("/requests/:id", h.getRequest)
		customer.PUT("/requests/:id/cancel", h.cancelRequest)
		customer.PUT("/requests/:id/reschedule", h.rescheduleRequest)
		customer.GET("/invoices", h.listInvoices)
		customer.PUT("/invoices/:id/pay", h.payInvoice)
	}

	technician := protected.Group("/technician")
	{
		technician.GET("/requests", h.listRequests)
		technician.GET("/requests/:id", h.getRequest)
		technician.PUT("/requests/:id/respond", h.respondToAssignment)
		technician.PUT("/requests/:id/start", h.startWork)
		technician.PUT("/requests/:id/finish", h.finishWork)
	}

	manager := protected.Group("/manager")
	{
		manager.GET("/requests", h.listRequests)
		manager.GET("/requests/:id", h.getRequest)
		manager.PUT("/requests/:id/assign", h.assignTechnician)
		manager.PUT("/requests/:id/status", h.updateStatus)
		manager.PUT("/requests/:id/reschedule", h.rescheduleRequest)
		manager.GET("/technicians/available", h.availableTechnicians)
		manager.POST("/categories", h.createCategory)
		manager.PUT("/categories/:id", h.updateCategory)
		manager.DELETE("/categories/:id", h.deleteCategory)
		manager.GET("/invoices", h.listInvoices)
		manager.PUT("/invoices/:id/pay", h.payInvoice)
		manager.GET("/dashboard/stats", h.dashboardStats)
	}
}

func (h *Handler) createRequest(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		CategoryID       string  `json:"category_id" binding:"required"`
		IssueDescription string  `json:"issue_description" binding:"required"`
		Priority         string  `json:"priority"`
		ScheduledDate    *string `json:"scheduled_date"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	var scheduled *time.Time
	if req.ScheduledDate != nil {
		parsed, err := parseTime(*req.ScheduledDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid scheduled_date"))
			return
		}
		scheduled = &parsed
	}

	request, err := h.requestService.Create(c.Request.Context(), principal, service.CreateRequestInput{
		CategoryID:       req.CategoryID,
		IssueDescription: req.IssueDescription,
		Priority:         req.Priority,
		ScheduledDate:    scheduled,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(request))
}

func (h *Handler) getRequest(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request id"))
		return
	}

	request, err := h.requestService.GetByID(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(request))
}

func (h *Handler) listRequests(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter := repository.RequestListFilter{}

	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		rs := model.RequestStatus(strings.ToUpper(status))
		filter.Status = &rs
	}

	requests, err := h.requestService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(requests))
}

func (h *Handler) assignTechnician(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request id"))
		return
	}

	var req struct {
		TechnicianID string `json:"technician_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	request, err := h.requestService.AssignTechnician(c.Request.Context(), principal, service.AssignTechnicianInput{
		RequestID:    id,
		TechnicianID: req.TechnicianID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(request))
}

func (h *Handler) respondToAssignment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request id"))
		return
	}

	var req struct {
		Accepted     *bool   `json:"accepted" binding:"required"`
		PlannedStart *string `json:"planned_start"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	var planned *time.Time
	if req.PlannedStart != nil {
		parsed, err := parseTime(*req.PlannedStart)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid planned_start"))
			return
		}
		planned = &parsed
	}

	request, err := h.requestService.RespondToAssignment(c.Request.Context(), principal, id, *req.Accepted, planned)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(request))
}

func (h *Handler) startWork(c *gin.Context) {
	h.workTransition(c, h.requestService.StartWork)
}

func (h *Handler) finishWork(c *gin.Context) {
	h.workTransition(c, h.requestService.FinishWork)
}

func (h *Handler) workTransition(c *gin.Context, transition func(ctx context.Context, principal model.Principal, id string, ts time.Time) (*model.ServiceRequest, error)) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request id"))
		return
	}

	var req struct {
		Timestamp *string `json:"timestamp"`
	}
	_ = c.ShouldBindJSON(&req)

	timestamp := time.Now().UTC()
	if req.Timestamp != nil {
		parsed, err := parseTime(*req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid timestamp"))
			return
		}
		timestamp = parsed
	}

	request, err := transition(c.Request.Context(), principal, id, timestamp)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(request))
}

func (h *Handler) updateStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request id"))
		return
	}

	var req struct {
		Status          string `json:"status" binding:"required"`
		ResolutionNotes string `json:"resolution_notes"`
		WithBilling     bool   `json:"with_billing"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	request, err := h.requestService.UpdateStatus(c.Request.Context(), principal, service.UpdateStatusInput{
		RequestID:       id,
		Status:          model.RequestStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		ResolutionNotes: req.ResolutionNotes,
		WithBilling:     req.WithBilling,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(request))
}

func (h *Handler) cancelRequest(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request id"))
		return
	}

	if err := h.requestService.Cancel(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "request cancelled"}))
}

func (h *Handler) rescheduleRequest(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request id"))
		return
	}

	var req struct {
		ScheduledDate string `json:"scheduled_date" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	newDate, err := parseTime(req.ScheduledDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid scheduled_date"))
		return
	}

	request, err := h.requestService.Reschedule(c.Request.Context(), principal, id, newDate)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(request))
}

func (h *Handler) availableTechnicians(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	start, err := parseTime(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid start"))
		return
	}

	duration := 1
	if raw := strings.TrimSpace(c.Query("duration_hours")); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid duration_hours"))
			return
		}
		duration = parsed
	}

	technicians, err := h.availability.GetAvailableTechnicians(c.Request.Context(), start, duration)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(technicians))
}

func (h *Handler) listInvoices(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	invoices, err := h.billingService.GetInvoices(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(invoices))
}

func (h *Handler) payInvoice(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid invoice id"))
		return
	}

	if err := h.billingService.PayInvoice(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "invoice paid"}))
}

func (h *Handler) listCategories(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(categories))
}

func (h *Handler) createCategory(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		BaseCharge  float64 `json:"base_charge" binding:"required"`
		SlaHours    int     `json:"sla_hours" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), principal, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		BaseCharge:  req.BaseCharge,
		SlaHours:    req.SlaHours,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(category))
}

func (h *Handler) updateCategory(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid category id"))
		return
	}

	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		BaseCharge  float64 `json:"base_charge" binding:"required"`
		SlaHours    int     `json:"sla_hours" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), principal, id, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		BaseCharge:  req.BaseCharge,
		SlaHours:    req.SlaHours,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(category))
}

func (h *Handler) deleteCategory(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid category id"))
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) dashboardStats(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	stats, err := h.dashboardService.GetStats(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid time format")
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, errors.New("must be positive")
	}
	return value, nil
}
