package domain

// MediaKind tags the type of media attached to a stop.
type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// MediaRef is a tagged reference to a stop's media asset. A zero MediaRef
// means the stop has no media, which is a valid state.
type MediaRef struct {
	Kind MediaKind `json:"kind,omitempty"`
	URL  string    `json:"url,omitempty"`
}

// Present reports whether the reference points at an actual asset.
func (m MediaRef) Present() bool {
	return m.Kind != MediaNone && m.URL != ""
}
