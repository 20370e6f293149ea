package timeline

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TextTransform rewrites caption text before rendering.
type TextTransform string

const (
	TransformNone  TextTransform = "none"
	TransformUpper TextTransform = "upper"
	TransformLower TextTransform = "lower"
	TransformTitle TextTransform = "title"
)

// StyleProfile is a named caption rendering preset.
type StyleProfile struct {
	Name        string
	Font        string
	Size        int
	Color       string
	StrokeColor string
	StrokeWidth float64
	Bold        bool
	Shadow      float64
	Transform   TextTransform
}

// DefaultStyleName is used when a requested style is unknown or empty.
const DefaultStyleName = "modern"

var styleRegistry = map[string]StyleProfile{
	"modern": {
		Name: "modern", Font: "Montserrat", Size: 58,
		Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 2.5,
		Bold: true, Transform: TransformNone,
	},
	"classic": {
		Name: "classic", Font: "Arial", Size: 52,
		Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 2,
		Transform: TransformNone,
	},
	"minimal": {
		Name: "minimal", Font: "Helvetica", Size: 46,
		Color: "#FFFFFF", StrokeColor: "#202020", StrokeWidth: 1,
		Transform: TransformNone,
	},
	"bold": {
		Name: "bold", Font: "Impact", Size: 64,
		Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 3.5,
		Bold: true, Transform: TransformNone,
	},
	"uppercase": {
		Name: "uppercase", Font: "Montserrat", Size: 56,
		Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 2.5,
		Bold: true, Transform: TransformUpper,
	},
	"lowercase": {
		Name: "lowercase", Font: "Montserrat", Size: 52,
		Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 2,
		Transform: TransformLower,
	},
	"elegant": {
		Name: "elegant", Font: "Georgia", Size: 50,
		Color: "#F5F0E6", StrokeColor: "#2B2B2B", StrokeWidth: 1.5,
		Transform: TransformTitle,
	},
	"neon": {
		Name: "neon", Font: "Montserrat", Size: 56,
		Color: "#39FF14", StrokeColor: "#003300", StrokeWidth: 2,
		Bold: true, Transform: TransformUpper,
	},
	"shadow": {
		Name: "shadow", Font: "Arial", Size: 54,
		Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 1,
		Shadow: 4, Transform: TransformNone,
	},
	"outline": {
		Name: "outline", Font: "Arial", Size: 54,
		Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 4,
		Bold: true, Transform: TransformNone,
	},
}

// StyleNames returns the sorted list of registered style names.
func StyleNames() []string {
	names := make([]string, 0, len(styleRegistry))
	for name := range styleRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveStyle looks up a style profile by name.
func ResolveStyle(name string) (StyleProfile, bool) {
	profile, ok := styleRegistry[strings.ToLower(strings.TrimSpace(name))]
	return profile, ok
}

// ResolveStyleOrDefault looks up a style profile, falling back to the default
// profile for unknown or empty names.
func ResolveStyleOrDefault(name string) StyleProfile {
	if profile, ok := ResolveStyle(name); ok {
		return profile
	}
	profile := styleRegistry[DefaultStyleName]
	return profile
}

var titleCaser = cases.Title(language.Und)

// ApplyTransform rewrites text according to the profile's transform.
func (p StyleProfile) ApplyTransform(text string) string {
	switch p.Transform {
	case TransformUpper:
		return strings.ToUpper(text)
	case TransformLower:
		return strings.ToLower(text)
	case TransformTitle:
		return titleCaser.String(text)
	default:
		return text
	}
}
