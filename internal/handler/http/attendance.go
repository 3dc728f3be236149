package http

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/correlation"
	"github.com/cmlabs-hris/attendance-bot/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/gps.html
var templateFS embed.FS

var gpsPage = template.Must(template.ParseFS(templateFS, "templates/gps.html"))

const (
	handshakeReportPath = "/api/v1/handshakes/report"
	maxReportBytes      = 4 << 10
)

type AttendanceHandler interface {
	// LocationPage serves GET /gps/{token}.
	LocationPage(w http.ResponseWriter, r *http.Request)
	// ReportLocation serves POST /api/v1/handshakes/report.
	ReportLocation(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

type gpsPageData struct {
	Token     string
	ReportURL string
}

// LocationPage implements AttendanceHandler.
func (h *attendanceHandlerImpl) LocationPage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		response.BadRequest(w, "Token is required", nil)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := gpsPage.Execute(w, gpsPageData{Token: token, ReportURL: handshakeReportPath}); err != nil {
		slog.Error("Failed to render location page", "error", err)
	}
}

// ReportLocation implements AttendanceHandler.
func (h *attendanceHandlerImpl) ReportLocation(w http.ResponseWriter, r *http.Request) {
	var req attendance.HandshakeReport

	r.Body = http.MaxBytesReader(w, r.Body, maxReportBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Handshake report decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	accepted, err := h.attendanceService.Report(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if !accepted {
		response.HandleError(w, correlation.ErrTokenNotFound)
		return
	}

	response.SuccessWithMessage(w, "Location received", nil)
}
