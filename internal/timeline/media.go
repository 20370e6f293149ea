package timeline

// MediaKind distinguishes still images from video clips.
type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// AssetMetadata carries per-asset playback hints consumed by the compositor.
type AssetMetadata struct {
	PlaybackSpeed float64 `json:"playback_speed,omitempty"`
	Transition    string  `json:"transition,omitempty"`
	SearchQuery   string  `json:"search_query,omitempty"`
	Provider      string  `json:"provider,omitempty"`
	SourceURL     string  `json:"source_url,omitempty"`
	Placeholder   bool    `json:"placeholder,omitempty"`
}

// MediaAsset is the visual paired to a scene. Pairing produces exactly one
// asset per scene, keyed by SceneIndex.
type MediaAsset struct {
	Path       string        `json:"path"`
	Kind       MediaKind     `json:"kind"`
	SceneIndex int           `json:"scene_index"`
	Metadata   AssetMetadata `json:"metadata"`
}
