// internal/domain/factory/dto.go
package factory

type CreateEmployeeRequest struct {
	BadgeNo    string `json:"badge_no" binding:"required"`
	FullName   string `json:"full_name" binding:"required"`
	Department string `json:"department"`
}

type CreateLineRequest struct {
	Name string `json:"name" binding:"required"`
	Area string `json:"area"`
}

type CreateProcessRequest struct {
	LineID      int64  `json:"line_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Sequence    int    `json:"sequence"`
	OperationID int64  `json:"operation_id"`
	Machine     string `json:"machine"`
}

type CreateOperationRequest struct {
	Code        string  `json:"code" binding:"required"`
	Description string  `json:"description" binding:"required"`
	StdMinutes  float64 `json:"std_minutes"`
}
