package models

import (
	"errors"
	"time"
)

// TrackingRecord is one attributed conversion event. Every record attributes
// to exactly one influencer; orders and revenue are net figures by convention.
type TrackingRecord struct {
	ID           string    `json:"id"`
	Source       string    `json:"source,omitempty"`
	Campaign     string    `json:"campaign,omitempty"`
	InfluencerID string    `json:"influencer_id"`
	UserID       string    `json:"user_id,omitempty"`
	Product      string    `json:"product,omitempty"`
	OrderDate    time.Time `json:"order_date"`
	Orders       int64     `json:"orders"`
	Revenue      float64   `json:"revenue"`
}

func (t *TrackingRecord) Validate() error {
	if t.InfluencerID == "" {
		return errors.New("influencer_id is required")
	}
	if t.Orders < 0 {
		return errors.New("orders must be >= 0")
	}
	if t.Revenue < 0 {
		return errors.New("revenue must be >= 0")
	}
	return nil
}
