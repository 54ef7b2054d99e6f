// internal/handlers/scan/scan_handler.go
package scan

import (
	"net/http"
	"strconv"

	assignmentdomain "shopfloor-service/internal/domain/assignment"
	"shopfloor-service/internal/middleware"
	"shopfloor-service/internal/obs"
	"shopfloor-service/internal/pkg/qrtoken"
	"shopfloor-service/internal/pkg/response"
	assignmentUsecase "shopfloor-service/internal/service/assignment"
	qrUsecase "shopfloor-service/internal/service/qr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ScanRequest struct {
	LineID            int64  `json:"line_id" binding:"required"`
	ProcessID         int64  `json:"process_id" binding:"required"`
	EmployeeQRPayload string `json:"employee_qr_payload" binding:"required"`
	MaterialsAtLink   int    `json:"materials_at_link"`
	QuantityCompleted *int   `json:"quantity_completed"`
	ConfirmChange     bool   `json:"confirm_change"`
}

type ScanHandler struct {
	resolver *assignmentUsecase.Service
	qr       *qrUsecase.Service
	logger   *zap.Logger
}

func NewScanHandler(resolver *assignmentUsecase.Service, qr *qrUsecase.Service, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{resolver: resolver, qr: qr, logger: logger}
}

// Resolve processes one scan-to-assign request. Conflict outcomes come back
// as 409 with a stable reason code; the client re-invokes with the missing
// input.
func (h *ScanHandler) Resolve(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	payload, err := h.qr.Verify(req.EmployeeQRPayload)
	if err != nil || payload.Kind != qrtoken.KindEmployee {
		response.Error(c, http.StatusBadRequest, "unrecognized employee badge", nil)
		return
	}

	result, err := h.resolver.ResolveScan(c.Request.Context(), identity, assignmentdomain.ScanInput{
		LineID:            req.LineID,
		ProcessID:         req.ProcessID,
		EmployeeID:        payload.ID,
		MaterialsAtLink:   req.MaterialsAtLink,
		QuantityCompleted: req.QuantityCompleted,
		ConfirmChange:     req.ConfirmChange,
	}, c.ClientIP())
	if err != nil {
		h.logger.Error("scan resolution failed",
			zap.Int64("line_id", req.LineID),
			zap.Int64("process_id", req.ProcessID),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "scan failed", nil)
		return
	}

	obs.AssignmentOutcomes.WithLabelValues(string(result.Outcome)).Inc()

	switch result.Outcome {
	case assignmentdomain.OutcomeConfirmRequired:
		response.Conflict(c, response.ReasonConfirmChange,
			"process is assigned to another employee; confirm the change")
	case assignmentdomain.OutcomeQuantityRequired:
		response.Conflict(c, response.ReasonQuantityRequired,
			"supply the outgoing employee's completed quantity")
	default:
		response.Success(c, http.StatusOK, "assignment resolved", result)
	}
}

// ListByLine returns today's assignment board for one line.
func (h *ScanHandler) ListByLine(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("line_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid line id", err)
		return
	}

	assignments, err := h.resolver.ListToday(c.Request.Context(), lineID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list assignments", err)
		return
	}
	response.Success(c, http.StatusOK, "assignments", assignments)
}
