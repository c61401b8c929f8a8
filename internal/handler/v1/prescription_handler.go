package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medassist/medassist/internal/service"
)

type PrescriptionHandler struct {
	prescriptionSvc *service.PrescriptionService
}

func NewPrescriptionHandler(prescriptionSvc *service.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptionSvc: prescriptionSvc}
}

type suggestRequest struct {
	PatientName string `json:"patient_name" binding:"required"`
}

func (h *PrescriptionHandler) Suggest(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req suggestRequest
	if !bindJSON(c, &req) {
		return
	}

	suggestion, err := h.prescriptionSvc.SuggestForPatient(c.Request.Context(), req.PatientName,
		claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, suggestion)
}

type reviewRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}

func (h *PrescriptionHandler) Review(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}

	suggestion, err := h.prescriptionSvc.Review(c.Request.Context(), id, *req.Accepted,
		claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, suggestion)
}

func (h *PrescriptionHandler) ListForReport(c *gin.Context) {
	reportID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	suggestions, err := h.prescriptionSvc.ListForReport(c.Request.Context(), reportID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, suggestions)
}
