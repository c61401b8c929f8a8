package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	consultdomain "github.com/medassist/medassist/internal/domain/consultation"
	"github.com/medassist/medassist/internal/service"
)

type ConsultationHandler struct {
	consultSvc *service.ConsultationService
}

func NewConsultationHandler(consultSvc *service.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{consultSvc: consultSvc}
}

type scheduleConsultationRequest struct {
	PatientID      uuid.UUID  `json:"patient_id" binding:"required"`
	DoctorID       uuid.UUID  `json:"doctor_id" binding:"required"`
	ScheduledAt    time.Time  `json:"scheduled_at" binding:"required"`
	DurationMins   int        `json:"duration_mins"`
	Type           string     `json:"type" binding:"required"`
	ChiefComplaint string     `json:"chief_complaint"`
	ReportID       *uuid.UUID `json:"report_id"`
}

func (h *ConsultationHandler) Schedule(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req scheduleConsultationRequest
	if !bindJSON(c, &req) {
		return
	}

	cons, err := h.consultSvc.Schedule(c.Request.Context(), &consultdomain.CreateConsultationCommand{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		ScheduledAt:    req.ScheduledAt,
		DurationMins:   req.DurationMins,
		Type:           consultdomain.ConsultationType(req.Type),
		ChiefComplaint: req.ChiefComplaint,
		ReportID:       req.ReportID,
		CreatedBy:      claims.UserID,
	}, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, cons)
}

func (h *ConsultationHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	cons, err := h.consultSvc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, cons)
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *ConsultationHandler) Transition(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}

	cons, err := h.consultSvc.Transition(c.Request.Context(), id,
		consultdomain.ConsultationStatus(req.Status), req.Reason,
		claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, cons)
}

func (h *ConsultationHandler) List(c *gin.Context) {
	q := &consultdomain.ListConsultationsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if v := c.Query("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid patient_id")
			return
		}
		q.PatientID = &id
	}
	if v := c.Query("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid doctor_id")
			return
		}
		q.DoctorID = &id
	}
	if v := c.Query("status"); v != "" {
		status := consultdomain.ConsultationStatus(v)
		q.Status = &status
	}
	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid date_from, expected RFC3339")
			return
		}
		q.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid date_to, expected RFC3339")
			return
		}
		q.DateTo = &t
	}

	paged, err := h.consultSvc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, paged)
}
