package captions

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reelsmith/internal/timeline"
)

// writeASS renders the caption track as an Advanced SubStation Alpha file
// with one style derived from the profile.
func writeASS(path string, track []timeline.Caption, profile timeline.StyleProfile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure caption dir: %w", err)
	}

	var builder strings.Builder
	builder.WriteString("[Script Info]\n")
	builder.WriteString("ScriptType: v4.00+\n")
	builder.WriteString("WrapStyle: 0\n")
	builder.WriteString("ScaledBorderAndShadow: yes\n")
	builder.WriteString("PlayResX: 1080\n")
	builder.WriteString("PlayResY: 1920\n\n")

	builder.WriteString("[V4+ Styles]\n")
	builder.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, Bold, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	builder.WriteString(fmt.Sprintf("Style: %s,%s,%d,%s,%s,%d,%g,%g,2,60,60,120\n\n",
		profile.Name,
		profile.Font,
		profile.Size,
		assColor(profile.Color),
		assColor(profile.StrokeColor),
		assBold(profile.Bold),
		profile.StrokeWidth,
		profile.Shadow,
	))

	builder.WriteString("[Events]\n")
	builder.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, caption := range track {
		builder.WriteString(fmt.Sprintf("Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			assTime(caption.Start),
			assTime(caption.End),
			profile.Name,
			escapeASSText(caption.Text),
		))
	}

	return os.WriteFile(path, []byte(builder.String()), 0o644)
}

// assTime formats seconds as H:MM:SS.CC.
func assTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	hours := centis / 360000
	centis -= hours * 360000
	minutes := centis / 6000
	centis -= minutes * 6000
	secs := centis / 100
	centis -= secs * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

// assColor converts #RRGGBB to the &H00BBGGRR& form.
func assColor(hex string) string {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return "&H00FFFFFF&"
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return "&H00FFFFFF&"
	}
	r := (value >> 16) & 0xFF
	g := (value >> 8) & 0xFF
	b := value & 0xFF
	return fmt.Sprintf("&H00%02X%02X%02X&", b, g, r)
}

func assBold(bold bool) int {
	if bold {
		return -1
	}
	return 0
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\n", `\N`)
	return strings.ReplaceAll(text, "{", "(")
}
