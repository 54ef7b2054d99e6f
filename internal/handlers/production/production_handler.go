// internal/handlers/production/production_handler.go
package production

import (
	"net/http"

	"shopfloor-service/internal/middleware"
	"shopfloor-service/internal/pkg/response"
	productionUsecase "shopfloor-service/internal/service/production"

	"github.com/gin-gonic/gin"
)

type ProductionHandler struct {
	productionService *productionUsecase.Service
}

func NewProductionHandler(productionService *productionUsecase.Service) *ProductionHandler {
	return &ProductionHandler{productionService: productionService}
}

type recordOutputRequest struct {
	LineID     int64 `json:"line_id" binding:"required"`
	ProcessID  int64 `json:"process_id" binding:"required"`
	EmployeeID int64 `json:"employee_id" binding:"required"`
	Hour       int   `json:"hour"`
	Quantity   int   `json:"quantity" binding:"required"`
}

func (h *ProductionHandler) RecordOutput(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req recordOutputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	err := h.productionService.RecordOutput(c.Request.Context(), identity,
		req.LineID, req.ProcessID, req.EmployeeID, req.Hour, req.Quantity, c.ClientIP())
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to record output", err)
		return
	}
	response.Success(c, http.StatusOK, "output recorded", nil)
}

type recordAttendanceRequest struct {
	LineID     int64 `json:"line_id" binding:"required"`
	EmployeeID int64 `json:"employee_id" binding:"required"`
}

func (h *ProductionHandler) RecordAttendance(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req recordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	err := h.productionService.RecordAttendance(c.Request.Context(), identity,
		req.LineID, req.EmployeeID, c.ClientIP())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to record attendance", err)
		return
	}
	response.Success(c, http.StatusOK, "attendance recorded", nil)
}

func (h *ProductionHandler) DailySummary(c *gin.Context) {
	rows, err := h.productionService.DailySummary(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load summary", err)
		return
	}
	response.Success(c, http.StatusOK, "daily summary", rows)
}
