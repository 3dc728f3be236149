package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/handler/http/response"
)

type LeaveHandler interface {
	// ListRequests returns the leave log; ?status=pending limits it to open requests.
	ListRequests(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
}

func NewLeaveHandler(leaveService leave.LeaveService) LeaveHandler {
	return &LeaveHandlerImpl{
		leaveService: leaveService,
	}
}

// ListRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	switch leave.LeaveRequestStatus(status) {
	case "":
		requests, err := l.leaveService.List(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.SuccessWithMeta(w, requests, &response.Meta{TotalItems: int64(len(requests))})
	case leave.LeaveRequestStatusPending:
		pending := l.leaveService.ListPending()
		requests := make([]leave.LeaveRequestResponse, 0, len(pending))
		for _, req := range pending {
			requests = append(requests, leave.ToResponse(req))
		}
		response.SuccessWithMeta(w, requests, &response.Meta{TotalItems: int64(len(requests))})
	default:
		response.BadRequest(w, "Unsupported status filter", map[string]string{"status": "status must be empty or pending"})
	}
}
