package mediapair

import (
	"hash/fnv"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"

	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

const (
	placeholderWidth  = 1080
	placeholderHeight = 1920
)

// placeholderPalettes are muted background pairs; the query hash picks one so
// consecutive placeholder scenes do not look identical.
var placeholderPalettes = [][2][3]float64{
	{{0.13, 0.16, 0.23}, {0.23, 0.29, 0.42}},
	{{0.16, 0.12, 0.20}, {0.33, 0.22, 0.39}},
	{{0.10, 0.19, 0.18}, {0.18, 0.36, 0.33}},
	{{0.22, 0.15, 0.12}, {0.42, 0.27, 0.20}},
	{{0.12, 0.14, 0.25}, {0.20, 0.32, 0.49}},
}

// renderPlaceholder draws a local stand-in image for a scene whose fetch
// failed everywhere. It cannot fail for provider reasons, only on disk errors.
func renderPlaceholder(scene timeline.Scene, query, destPath string) (timeline.MediaAsset, error) {
	palette := placeholderPalettes[hashString(query)%uint32(len(placeholderPalettes))]

	dc := gg.NewContext(placeholderWidth, placeholderHeight)
	gradient := gg.NewLinearGradient(0, 0, 0, placeholderHeight)
	gradient.AddColorStop(0, rgb(palette[0]))
	gradient.AddColorStop(1, rgb(palette[1]))
	dc.SetFillStyle(gradient)
	dc.DrawRectangle(0, 0, placeholderWidth, placeholderHeight)
	dc.Fill()

	text := strings.TrimSpace(scene.VisualDescription)
	if text == "" {
		text = strings.TrimSpace(scene.Text)
	}
	if text != "" {
		dc.SetRGBA(1, 1, 1, 0.85)
		dc.DrawStringWrapped(text, placeholderWidth/2, placeholderHeight/2,
			0.5, 0.5, placeholderWidth*0.8, 1.6, gg.AlignCenter)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return timeline.MediaAsset{}, services.Wrap(services.ErrResource, stageName, "placeholder", "create media directory", err)
	}
	if err := dc.SavePNG(destPath); err != nil {
		return timeline.MediaAsset{}, services.Wrap(services.ErrResource, stageName, "placeholder", "save placeholder", err)
	}
	return timeline.MediaAsset{
		Path: destPath,
		Kind: timeline.KindPhoto,
		Metadata: timeline.AssetMetadata{
			SearchQuery: query,
			Provider:    "placeholder",
			Placeholder: true,
		},
	}, nil
}

func rgb(c [3]float64) color.Color {
	return color.RGBA{
		R: uint8(c[0] * 255),
		G: uint8(c[1] * 255),
		B: uint8(c[2] * 255),
		A: 255,
	}
}

func hashString(value string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(value)))
	return h.Sum32()
}
