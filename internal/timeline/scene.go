package timeline

import (
	"encoding/json"
	"fmt"
)

// Scene is one narrated segment of the script with its visual direction.
// Enhancement produces scenes; audio resync rewrites AudioStart/AudioEnd;
// after resync a scene is read-only.
type Scene struct {
	Text              string   `json:"text"`
	VisualDescription string   `json:"visual_description"`
	VisualKeywords    []string `json:"visual_keywords,omitempty"`
	Duration          float64  `json:"duration"`
	AudioStart        float64  `json:"audio_start"`
	AudioEnd          float64  `json:"audio_end"`
}

// TotalDuration sums the scene durations.
func TotalDuration(scenes []Scene) float64 {
	var total float64
	for _, scene := range scenes {
		total += scene.Duration
	}
	return total
}

// EncodeScenes serializes scenes for persistence on the job row.
func EncodeScenes(scenes []Scene) (string, error) {
	data, err := json.Marshal(scenes)
	if err != nil {
		return "", fmt.Errorf("encode scenes: %w", err)
	}
	return string(data), nil
}

// DecodeScenes restores scenes persisted by EncodeScenes.
func DecodeScenes(raw string) ([]Scene, error) {
	if raw == "" {
		return nil, nil
	}
	var scenes []Scene
	if err := json.Unmarshal([]byte(raw), &scenes); err != nil {
		return nil, fmt.Errorf("decode scenes: %w", err)
	}
	return scenes, nil
}
