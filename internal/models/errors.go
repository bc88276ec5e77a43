package models

import (
	"fmt"
	"strings"
)

// InvalidBasisError marks a payout contract whose basis is outside the
// post/order enum. This is a data-quality fault surfaced at load time.
type InvalidBasisError struct {
	ContractID string
	Basis      string
}

func (e *InvalidBasisError) Error() string {
	if e.ContractID != "" {
		return fmt.Sprintf("invalid payout basis %q on contract %s", e.Basis, e.ContractID)
	}
	return fmt.Sprintf("invalid payout basis %q", e.Basis)
}

// DanglingRef is a child row referencing an influencer that does not exist.
type DanglingRef struct {
	Entity       string `json:"entity"` // "post", "tracking_record", "payout_contract"
	ID           string `json:"id"`
	InfluencerID string `json:"influencer_id"`
}

// DataIntegrityError reports every referential violation found while building
// a snapshot. Violations are never silently dropped.
type DataIntegrityError struct {
	Refs []DanglingRef
}

func (e *DataIntegrityError) Error() string {
	parts := make([]string, 0, len(e.Refs))
	for _, r := range e.Refs {
		parts = append(parts, fmt.Sprintf("%s %s -> influencer %s", r.Entity, r.ID, r.InfluencerID))
	}
	return fmt.Sprintf("referential integrity violated (%d): %s", len(e.Refs), strings.Join(parts, "; "))
}

// ValidationError is a caller-facing query-layer fault (unknown sort field,
// bad parameter value). It maps to a 400 at the HTTP surface.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
