package player

import (
	"fmt"
	"time"
)

// Track is a single playable item resolved by the audio node.
type Track struct {
	Encoded     string `json:"encoded"`
	Title       string `json:"title"`
	URI         string `json:"uri"`
	LengthMs    int64  `json:"length_ms"`
	RequesterID string `json:"requester_id"`
}

// Same reports whether t and o refer to the same node track.
func (t Track) Same(o Track) bool {
	if t.Encoded != "" || o.Encoded != "" {
		return t.Encoded == o.Encoded
	}
	return t.URI == o.URI && t.Title == o.Title
}

// Duration formats the track length as mm:ss, or hh:mm:ss past an hour.
func (t Track) Duration() string {
	return FormatDuration(t.LengthMs)
}

func FormatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
