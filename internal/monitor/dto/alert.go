package dto

import (
	"time"

	"golang-stock-monitor/internal/entity"
)

// AlertResponse is the API view of an alert.
type AlertResponse struct {
	ID         uint       `json:"id"`
	PositionID uint       `json:"position_id"`
	Symbol     string     `json:"symbol,omitempty"`
	AlertType  string     `json:"alert_type"`
	Reason     string     `json:"reason"`
	Price      *float64   `json:"price,omitempty"`
	MA5        *float64   `json:"ma5,omitempty"`
	MA20       *float64   `json:"ma20,omitempty"`
	Sent       bool       `json:"sent"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewAlertResponse converts an entity to its API view.
func NewAlertResponse(a *entity.Alert) AlertResponse {
	resp := AlertResponse{
		ID:         a.ID,
		PositionID: a.PositionID,
		AlertType:  string(a.AlertType),
		Reason:     a.Reason,
		Price:      a.Price,
		MA5:        a.MA5,
		MA20:       a.MA20,
		Sent:       a.Sent,
		SentAt:     a.SentAt,
		CreatedAt:  a.CreatedAt,
	}
	if a.Position != nil {
		resp.Symbol = a.Position.Symbol
	}
	return resp
}

// ConfirmExitRequest closes the position an exit alert was raised for.
type ConfirmExitRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

// PurgeResponse reports how many rows a retention purge removed.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}
