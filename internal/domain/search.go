package domain

import (
	"time"
)

// ImageRef identifies one image of an event corpus.
type ImageRef struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Match is one image whose recorded faces are within tolerance of the query.
// Distance is that of the first matching face in collection order.
type Match struct {
	PublicID string  `json:"public_id"`
	URL      string  `json:"url"`
	Distance float64 `json:"distance"`
}

// Link returns the URL, or the public ID when the record has none.
func (m Match) Link() string {
	if m.URL != "" {
		return m.URL
	}
	return m.PublicID
}

// SkippedImage records an image the builder could not process.
type SkippedImage struct {
	PublicID string `json:"public_id"`
	Reason   string `json:"reason"`
}

// BuildReport resume uma execução do CorpusBuilder.
type BuildReport struct {
	Event        string         `json:"event"`
	Scanned      int            `json:"scanned"`
	Processed    int            `json:"processed"`
	Added        int            `json:"added"`
	Total        int            `json:"total"`
	Skipped      []SkippedImage `json:"skipped,omitempty"`
	NoFace       []string       `json:"no_face,omitempty"`
	Saved        bool           `json:"saved"`
	Published    bool           `json:"published"`
	PublishError string         `json:"publish_error,omitempty"`
	Duration     time.Duration  `json:"duration"`
}
