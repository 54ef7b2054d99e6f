// internal/handlers/factory/factory_handler.go
package factory

import (
	"net/http"
	"strconv"

	factorydomain "shopfloor-service/internal/domain/factory"
	"shopfloor-service/internal/middleware"
	"shopfloor-service/internal/pkg/qrtoken"
	"shopfloor-service/internal/pkg/response"
	factoryUsecase "shopfloor-service/internal/service/factory"
	qrUsecase "shopfloor-service/internal/service/qr"

	"github.com/gin-gonic/gin"
)

type FactoryHandler struct {
	factoryService *factoryUsecase.Service
	qrService      *qrUsecase.Service
}

func NewFactoryHandler(factoryService *factoryUsecase.Service, qrService *qrUsecase.Service) *FactoryHandler {
	return &FactoryHandler{factoryService: factoryService, qrService: qrService}
}

// ========== Employees ==========

func (h *FactoryHandler) CreateEmployee(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req factorydomain.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	e, err := h.factoryService.CreateEmployee(c.Request.Context(), identity, &req, c.ClientIP())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create employee", err)
		return
	}
	response.Success(c, http.StatusCreated, "employee created", e)
}

func (h *FactoryHandler) ListEmployees(c *gin.Context) {
	employees, err := h.factoryService.ListEmployees(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list employees", err)
		return
	}
	response.Success(c, http.StatusOK, "employees", employees)
}

// EmployeeQR returns the current signed badge payload for an employee.
func (h *FactoryHandler) EmployeeQR(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid employee id", err)
		return
	}

	payload, err := h.qrService.Payload(c.Request.Context(), qrtoken.KindEmployee, id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to resolve qr payload", err)
		return
	}
	response.Success(c, http.StatusOK, "qr payload", gin.H{"payload": payload})
}

// ========== Lines ==========

func (h *FactoryHandler) CreateLine(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req factorydomain.CreateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	l, err := h.factoryService.CreateLine(c.Request.Context(), identity, &req, c.ClientIP())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create line", err)
		return
	}
	response.Success(c, http.StatusCreated, "line created", l)
}

func (h *FactoryHandler) ListLines(c *gin.Context) {
	lines, err := h.factoryService.ListLines(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list lines", err)
		return
	}
	response.Success(c, http.StatusOK, "lines", lines)
}

// ========== Processes ==========

func (h *FactoryHandler) CreateProcess(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req factorydomain.CreateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	p, err := h.factoryService.CreateProcess(c.Request.Context(), identity, &req, c.ClientIP())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create process", err)
		return
	}
	response.Success(c, http.StatusCreated, "process created", p)
}

func (h *FactoryHandler) ListProcessesByLine(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("line_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid line id", err)
		return
	}

	processes, err := h.factoryService.ListProcessesByLine(c.Request.Context(), lineID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list processes", err)
		return
	}
	response.Success(c, http.StatusOK, "processes", processes)
}

// ProcessQR returns the current signed payload for a process station card.
func (h *FactoryHandler) ProcessQR(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid process id", err)
		return
	}

	payload, err := h.qrService.Payload(c.Request.Context(), qrtoken.KindProcess, id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to resolve qr payload", err)
		return
	}
	response.Success(c, http.StatusOK, "qr payload", gin.H{"payload": payload})
}

// ========== Operations ==========

func (h *FactoryHandler) CreateOperation(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req factorydomain.CreateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	o, err := h.factoryService.CreateOperation(c.Request.Context(), identity, &req, c.ClientIP())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create operation", err)
		return
	}
	response.Success(c, http.StatusCreated, "operation created", o)
}

func (h *FactoryHandler) ListOperations(c *gin.Context) {
	operations, err := h.factoryService.ListOperations(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list operations", err)
		return
	}
	response.Success(c, http.StatusOK, "operations", operations)
}
