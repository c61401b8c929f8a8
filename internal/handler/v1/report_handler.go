package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/service"
)

type ReportHandler struct {
	reportSvc *service.ReportService
	maxUpload int64
}

func NewReportHandler(reportSvc *service.ReportService, maxUpload int64) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc, maxUpload: maxUpload}
}

// Upload accepts one or more report files as multipart form data under
// the "files" key. Each file succeeds or fails independently.
func (h *ReportHandler) Upload(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respondError(c, http.StatusBadRequest, "no files provided under 'files'")
		return
	}

	outcomes := make([]service.UploadOutcome, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			outcomes = append(outcomes, service.UploadOutcome{FileName: fh.Filename, Error: err.Error()})
			continue
		}
		outcome, err := h.reportSvc.UploadReport(c.Request.Context(), f, fh.Filename, claims.UserID, string(claims.Role), c.ClientIP())
		f.Close()
		if err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}

	respondCreated(c, outcomes)
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.reportSvc.GetReport(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *ReportHandler) List(c *gin.Context) {
	q := &report.ListReportsQuery{
		PatientName: c.Query("patient_name"),
		Page:        parseQueryInt(c, "page", 1),
		PageSize:    parseQueryInt(c, "page_size", 20),
	}

	paged, err := h.reportSvc.ListReports(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, paged)
}

func (h *ReportHandler) Count(c *gin.Context) {
	n, err := h.reportSvc.CountReports(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"count": n})
}

func (h *ReportHandler) PatientNames(c *gin.Context) {
	names, err := h.reportSvc.PatientNames(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, names)
}

func (h *ReportHandler) Summarize(c *gin.Context) {
	name := c.Query("patient_name")
	summary, err := h.reportSvc.SummarizeReport(c.Request.Context(), name)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"summary": summary})
}

func (h *ReportHandler) Analyze(c *gin.Context) {
	name := c.Query("patient_name")
	panel, err := h.reportSvc.AnalyzeReport(c.Request.Context(), name)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, panel)
}

func (h *ReportHandler) FindByLabValue(c *gin.Context) {
	test := c.Query("test")
	status := report.Status(c.Query("status"))
	if test == "" {
		respondError(c, http.StatusBadRequest, "test query parameter is required")
		return
	}

	names, err := h.reportSvc.FindPatientsByLabValue(c.Request.Context(), test, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, names)
}

func (h *ReportHandler) Cleanup(c *gin.Context) {
	claims := claimsFrom(c)
	removed, err := h.reportSvc.CleanupUnknown(c.Request.Context(), claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"removed": removed})
}

func (h *ReportHandler) RemoveDuplicates(c *gin.Context) {
	claims := claimsFrom(c)
	removed, err := h.reportSvc.RemoveDuplicates(c.Request.Context(), claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"removed": removed})
}
