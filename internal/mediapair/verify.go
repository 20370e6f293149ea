package mediapair

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/timeline"
)

// VerifyResult is an advisory relevance judgment for a fetched asset.
type VerifyResult struct {
	Score       int
	Explanation string
}

// Verifier scores how well an asset matches its scene. Verification is
// advisory: the pairer logs a poor score but never rejects the asset.
type Verifier interface {
	Verify(ctx context.Context, asset timeline.MediaAsset, scene timeline.Scene) (VerifyResult, error)
}

// VisionCompleter is the multimodal LLM surface the verifier consumes.
type VisionCompleter interface {
	Configured() bool
	CompleteJSONWithImage(ctx context.Context, systemPrompt, userPrompt, imageRef string) (string, error)
}

// FrameExtractor grabs a representative frame from a video asset.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, src string, atSeconds float64, dest string) error
}

// VisionVerifier scores assets with the vision model. Videos are sampled one
// second in; stills are sent directly.
type VisionVerifier struct {
	llm     VisionCompleter
	frames  FrameExtractor
	workDir string
}

// NewVisionVerifier creates a verifier. workDir receives extracted frames.
func NewVisionVerifier(llmClient VisionCompleter, frames FrameExtractor, workDir string) *VisionVerifier {
	return &VisionVerifier{llm: llmClient, frames: frames, workDir: workDir}
}

const verifierSystemPrompt = `You judge whether a stock image matches a video scene.
Respond with JSON only: {"score": 0-100, "explanation": "one sentence"}.
100 means the image shows exactly what the scene describes, 0 means unrelated.`

type verifierPayload struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// Verify scores the asset against the scene description.
func (v *VisionVerifier) Verify(ctx context.Context, asset timeline.MediaAsset, scene timeline.Scene) (VerifyResult, error) {
	if v.llm == nil || !v.llm.Configured() {
		return VerifyResult{}, services.Wrap(services.ErrProvider, stageName, "verify", "vision model not configured", nil)
	}

	imagePath := asset.Path
	if asset.Kind == timeline.KindVideo {
		if v.frames == nil {
			return VerifyResult{}, services.Wrap(services.ErrProvider, stageName, "verify", "no frame extractor for video asset", nil)
		}
		// Frame paths must be unique per call: jobs verifying the same
		// scene index run concurrently against the shared work dir.
		if err := os.MkdirAll(v.workDir, 0o755); err != nil {
			return VerifyResult{}, services.Wrap(services.ErrResource, stageName, "verify", "create frame directory", err)
		}
		frame, err := os.CreateTemp(v.workDir, fmt.Sprintf("verify_scene_%d_*.jpg", asset.SceneIndex))
		if err != nil {
			return VerifyResult{}, services.Wrap(services.ErrResource, stageName, "verify", "create frame file", err)
		}
		framePath := frame.Name()
		frame.Close()
		defer os.Remove(framePath)
		if err := v.frames.ExtractFrame(ctx, asset.Path, 1.0, framePath); err != nil {
			return VerifyResult{}, services.Wrap(services.ErrProvider, stageName, "verify", "frame extraction failed", err)
		}
		imagePath = framePath
	}

	dataURI, err := encodeImage(imagePath)
	if err != nil {
		return VerifyResult{}, services.Wrap(services.ErrProvider, stageName, "verify", "read image", err)
	}

	userPrompt := fmt.Sprintf("Scene: %s\nExpected visual: %s", scene.Text, scene.VisualDescription)
	content, err := v.llm.CompleteJSONWithImage(ctx, verifierSystemPrompt, userPrompt, dataURI)
	if err != nil {
		return VerifyResult{}, services.Wrap(services.ErrProvider, stageName, "verify", "vision completion failed", err)
	}
	var payload verifierPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return VerifyResult{}, services.Wrap(services.ErrProvider, stageName, "verify", "vision returned unparseable score", err)
	}
	if payload.Score < 0 {
		payload.Score = 0
	}
	if payload.Score > 100 {
		payload.Score = 100
	}
	return VerifyResult{Score: payload.Score, Explanation: strings.TrimSpace(payload.Explanation)}, nil
}

func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
