package dto

import (
	"time"
)

// ExportStatementRequest requests an xlsx credit statement for one agent
type ExportStatementRequest struct {
	AgentID   uint      `json:"agent_id" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}
