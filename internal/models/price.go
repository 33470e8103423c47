package models

import "time"

// PriceData is one point in the rolling price history.
// Prediction fields are nil when no forecast was made.
type PriceData struct {
	Timestamp      time.Time `json:"timestamp"`
	Price          float64   `json:"price"`
	Predicted      *float64  `json:"predicted,omitempty"`
	ConfidenceLow  *float64  `json:"confidenceLow,omitempty"`
	ConfidenceHigh *float64  `json:"confidenceHigh,omitempty"`
}
