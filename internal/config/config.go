package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	MusicDir  string `toml:"music_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// LLM contains shared LLM connection settings used by multiple features
// (script enhancement, query planning, media verification, quality review).
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	VisionModel    string `toml:"vision_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Media contains stock media provider credentials and fetch behaviour.
type Media struct {
	PexelsAPIKey   string `toml:"pexels_api_key"`
	PixabayAPIKey  string `toml:"pixabay_api_key"`
	PreferVideos   bool   `toml:"prefer_videos"`
	RequestTimeout int    `toml:"request_timeout"`
}

// TTS contains configuration for the speech synthesis provider.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcribe contains configuration for word-level transcription.
type Transcribe struct {
	Binary             string `toml:"binary"`
	Model              string `toml:"model"`
	Language           string `toml:"language"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	MaxWordsPerCaption int    `toml:"max_words_per_caption"`
}

// Pipeline contains configuration for job admission and stage timing.
type Pipeline struct {
	MaxConcurrentJobs    int     `toml:"max_concurrent_jobs"`
	QueuePollInterval    int     `toml:"queue_poll_interval"`
	ErrorRetryInterval   int     `toml:"error_retry_interval"`
	SceneDurationSeconds float64 `toml:"scene_duration_seconds"`
	MaxScenes            int     `toml:"max_scenes"`
}

// Captions contains caption styling defaults.
type Captions struct {
	DefaultStyle string `toml:"default_style"`
}

// Music contains background music mixing parameters.
type Music struct {
	VolumeDB       float64 `toml:"volume_db"`
	FadeInSeconds  float64 `toml:"fade_in_seconds"`
	FadeOutSeconds float64 `toml:"fade_out_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobComplete    bool   `toml:"job_complete"`
	JobFailed      bool   `toml:"job_failed"`
	Queue          bool   `toml:"queue"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Compositor contains rendering configuration.
type Compositor struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	OutputHeight   int    `toml:"output_height"`
	FPS            int    `toml:"fps"`
	RenderTimeout  int    `toml:"render_timeout"`
	VideoEncoder   string `toml:"video_encoder"`
	EncoderPreset  string `toml:"encoder_preset"`
	ConstantRateQP int    `toml:"crf"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - LLM: shared LLM connection settings for features that need AI
//   - Media: stock media provider keys (Pexels, Pixabay)
//   - TTS: speech synthesis provider
//   - Transcribe: whisperx transcription settings
//   - Pipeline: job admission bounds and polling intervals
//   - Captions: styling defaults
//   - Music: background music mixing parameters
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - Compositor: ffmpeg rendering settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Media         Media         `toml:"media"`
	TTS           TTS           `toml:"tts"`
	Transcribe    Transcribe    `toml:"transcribe"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Captions      Captions      `toml:"captions"`
	Music         Music         `toml:"music"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Compositor    Compositor    `toml:"compositor"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// MusicDir is created on a best-effort basis since music is optional.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.OutputDir,
		c.Paths.LogDir,
		c.VoiceoverDir(),
		c.MediaDir(),
		c.CaptionDir(),
		c.WorkDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.MusicDir) != "" {
		_ = os.MkdirAll(c.Paths.MusicDir, 0o755)
	}
	return nil
}

// DatabasePath returns the sqlite database location for the job store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "reelsmith.db")
}

// VoiceoverDir returns the directory holding narration audio per job.
func (c *Config) VoiceoverDir() string {
	return filepath.Join(c.Paths.DataDir, "voiceovers")
}

// MediaDir returns the directory holding fetched scene media per job.
func (c *Config) MediaDir() string {
	return filepath.Join(c.Paths.DataDir, "media")
}

// CaptionDir returns the directory holding generated subtitle tracks.
func (c *Config) CaptionDir() string {
	return filepath.Join(c.Paths.DataDir, "captions")
}

// WorkDir returns the scratch directory for intermediate render artifacts.
func (c *Config) WorkDir() string {
	return filepath.Join(c.Paths.DataDir, "work")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
