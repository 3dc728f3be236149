package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"
)

type ReportHandler interface {
	// Today handles GET /reports/today?handle=
	Today(w http.ResponseWriter, r *http.Request)
	// Month handles GET /reports/month?month=YYYY-MM&handle=
	Month(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService attendance.ReportService
}

func NewReportHandler(reportService attendance.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// handleFilter reads the optional ?handle= filter.
func handleFilter(r *http.Request) (string, error) {
	handle := r.URL.Query().Get("handle")
	if handle != "" && !validator.IsValidHandle(handle) {
		return "", validator.ValidationErrors{{
			Field:   "handle",
			Message: "handle must be 3-32 letters, digits or underscores",
		}}
	}
	return handle, nil
}

// Today implements ReportHandler.
func (h *reportHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	handle, err := handleFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	report, err := h.reportService.Today(r.Context(), handle)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, report)
}

// Month implements ReportHandler.
func (h *reportHandlerImpl) Month(w http.ResponseWriter, r *http.Request) {
	handle, err := handleFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	report, err := h.reportService.Month(r.Context(), r.URL.Query().Get("month"), handle)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, report)
}
