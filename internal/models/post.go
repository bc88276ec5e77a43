package models

import (
	"errors"
	"strings"
	"time"
)

// Post is a single piece of campaign content published by an influencer.
// Reach may legitimately be zero (boosted/brand content); downstream
// engagement-rate math treats that as an explicit undefined case, not an error.
type Post struct {
	ID           string    `json:"id"`
	InfluencerID string    `json:"influencer_id"`
	Platform     Platform  `json:"platform"`
	PostDate     time.Time `json:"post_date"`
	URL          string    `json:"url,omitempty"`
	Caption      string    `json:"caption,omitempty"`
	Reach        int64     `json:"reach"`
	Likes        int64     `json:"likes"`
	Comments     int64     `json:"comments"`
}

func (p *Post) Validate() error {
	if p.InfluencerID == "" {
		return errors.New("influencer_id is required")
	}
	if p.Reach < 0 {
		return errors.New("reach must be >= 0")
	}
	if p.Likes < 0 {
		return errors.New("likes must be >= 0")
	}
	if p.Comments < 0 {
		return errors.New("comments must be >= 0")
	}
	if _, err := ParsePlatform(string(p.Platform)); err != nil {
		return err
	}
	return nil
}

func normalizeEnum(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
