package models

import "errors"

type Basis string

const (
	BasisPost  Basis = "post"  // rate applies per published post
	BasisOrder Basis = "order" // rate applies per attributed order
)

// ParseBasis normalizes a raw basis string into a closed enum value.
func ParseBasis(raw string) (Basis, error) {
	switch Basis(normalizeEnum(raw)) {
	case BasisPost:
		return BasisPost, nil
	case BasisOrder:
		return BasisOrder, nil
	}
	return "", &InvalidBasisError{Basis: raw}
}

// PayoutContract defines how an influencer is compensated. TotalPayout is
// derived from basis, rate and the relevant count; a stored value is only a
// hint and is overridden when it disagrees with the derivation.
type PayoutContract struct {
	ID           string  `json:"id"`
	InfluencerID string  `json:"influencer_id"`
	Basis        Basis   `json:"basis"`
	Rate         float64 `json:"rate"`
	Orders       int64   `json:"orders"` // only meaningful when basis=order
	TotalPayout  float64 `json:"total_payout"`
}

func (c *PayoutContract) Validate() error {
	if c.InfluencerID == "" {
		return errors.New("influencer_id is required")
	}
	if c.Rate < 0 {
		return errors.New("rate must be >= 0")
	}
	if c.Orders < 0 {
		return errors.New("orders must be >= 0")
	}
	if _, err := ParseBasis(string(c.Basis)); err != nil {
		return err
	}
	return nil
}
