package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	patientdomain "github.com/medassist/medassist/internal/domain/patient"
	"github.com/medassist/medassist/internal/service"
)

type PatientHandler struct {
	patientSvc *service.PatientService
}

func NewPatientHandler(patientSvc *service.PatientService) *PatientHandler {
	return &PatientHandler{patientSvc: patientSvc}
}

type createPatientRequest struct {
	FirstName         string     `json:"first_name" binding:"required"`
	LastName          string     `json:"last_name"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            string     `json:"gender"`
	Phone             string     `json:"phone"`
	Email             string     `json:"email"`
	Address           string     `json:"address"`
	City              string     `json:"city"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronic_conditions"`
	AssignedDoctorID  *uuid.UUID `json:"assigned_doctor_id"`
	Notes             string     `json:"notes"`
}

func (h *PatientHandler) Create(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &patientdomain.CreatePatientCommand{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Gender:            patientdomain.Gender(req.Gender),
		Phone:             req.Phone,
		Email:             req.Email,
		Address:           req.Address,
		City:              req.City,
		Allergies:         req.Allergies,
		ChronicConditions: req.ChronicConditions,
		AssignedDoctorID:  req.AssignedDoctorID,
		Notes:             req.Notes,
		CreatedBy:         claims.UserID,
	}
	if req.DateOfBirth != nil {
		cmd.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender == "" {
		cmd.Gender = patientdomain.GenderUnknown
	}

	p, err := h.patientSvc.CreatePatient(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.patientSvc.GetPatient(c.Request.Context(), id, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) List(c *gin.Context) {
	q := &patientdomain.ListPatientsQuery{
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if s := c.Query("status"); s != "" {
		status := patientdomain.Status(s)
		q.Status = &status
	}
	if d := c.Query("doctor_id"); d != "" {
		doctorID, err := uuid.Parse(d)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid doctor_id")
			return
		}
		q.AssignedDoctorID = &doctorID
	}

	paged, err := h.patientSvc.ListPatients(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, paged)
}

func (h *PatientHandler) Search(c *gin.Context) {
	name := c.Query("name")
	patients, err := h.patientSvc.SearchPatients(c.Request.Context(), name)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, patients)
}

type updatePatientRequest struct {
	FirstName         *string    `json:"first_name"`
	LastName          *string    `json:"last_name"`
	Gender            *string    `json:"gender"`
	Phone             *string    `json:"phone"`
	Email             *string    `json:"email"`
	Address           *string    `json:"address"`
	City              *string    `json:"city"`
	Allergies         *[]string  `json:"allergies"`
	ChronicConditions *[]string  `json:"chronic_conditions"`
	AssignedDoctorID  *uuid.UUID `json:"assigned_doctor_id"`
	Notes             *string    `json:"notes"`
}

func (h *PatientHandler) Update(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &patientdomain.UpdatePatientCommand{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		Email:             req.Email,
		Address:           req.Address,
		City:              req.City,
		Allergies:         req.Allergies,
		ChronicConditions: req.ChronicConditions,
		AssignedDoctorID:  req.AssignedDoctorID,
		Notes:             req.Notes,
		UpdatedBy:         claims.UserID,
	}
	if req.Gender != nil {
		g := patientdomain.Gender(*req.Gender)
		cmd.Gender = &g
	}

	p, err := h.patientSvc.UpdatePatient(c.Request.Context(), id, cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) Deactivate(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.patientSvc.DeactivatePatient(c.Request.Context(), id, claims.UserID, string(claims.Role), c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deactivated": true})
}
