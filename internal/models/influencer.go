package models

import "errors"

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
)

// ParsePlatform normalizes a raw platform string into a closed enum value.
// Invalid values are rejected here, at the boundary, rather than at query time.
func ParsePlatform(raw string) (Platform, error) {
	switch Platform(normalizeEnum(raw)) {
	case PlatformInstagram:
		return PlatformInstagram, nil
	case PlatformYouTube:
		return PlatformYouTube, nil
	case PlatformTwitter:
		return PlatformTwitter, nil
	}
	return "", errors.New("unknown platform: " + raw)
}

// Influencer is a creator participating in campaigns. Loaded once and
// immutable for the lifetime of a reporting snapshot.
type Influencer struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"` // persona tag, open vocabulary
	Gender        string   `json:"gender,omitempty"`
	FollowerCount int64    `json:"follower_count"`
	Platform      Platform `json:"platform"`
}

func (i *Influencer) Validate() error {
	if i.ID == "" {
		return errors.New("id is required")
	}
	if i.Name == "" {
		return errors.New("name is required")
	}
	if i.FollowerCount < 0 {
		return errors.New("follower_count must be >= 0")
	}
	if _, err := ParsePlatform(string(i.Platform)); err != nil {
		return err
	}
	return nil
}
