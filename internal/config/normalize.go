package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeMedia()
	c.normalizeTTS()
	c.normalizeTranscribe()
	c.normalizePipeline()
	c.normalizeCaptions()
	c.normalizeMusic()
	c.normalizeCompositor()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MusicDir) != "" {
		if c.Paths.MusicDir, err = expandPath(c.Paths.MusicDir); err != nil {
			return fmt.Errorf("paths.music_dir: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.VisionModel = strings.TrimSpace(c.LLM.VisionModel)
	if c.LLM.VisionModel == "" {
		c.LLM.VisionModel = defaultLLMVisionModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeMedia() {
	c.Media.PexelsAPIKey = strings.TrimSpace(c.Media.PexelsAPIKey)
	if c.Media.PexelsAPIKey == "" {
		if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok {
			c.Media.PexelsAPIKey = strings.TrimSpace(value)
		}
	}
	c.Media.PixabayAPIKey = strings.TrimSpace(c.Media.PixabayAPIKey)
	if c.Media.PixabayAPIKey == "" {
		if value, ok := os.LookupEnv("PIXABAY_API_KEY"); ok {
			c.Media.PixabayAPIKey = strings.TrimSpace(value)
		}
	}
	if c.Media.RequestTimeout <= 0 {
		c.Media.RequestTimeout = defaultMediaRequestTimeout
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.Binary = strings.TrimSpace(c.Transcribe.Binary)
	if c.Transcribe.Binary == "" {
		c.Transcribe.Binary = defaultTranscribeBinary
	}
	c.Transcribe.Model = strings.TrimSpace(c.Transcribe.Model)
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = defaultTranscribeModel
	}
	c.Transcribe.Language = strings.ToLower(strings.TrimSpace(c.Transcribe.Language))
	if c.Transcribe.Language == "" {
		c.Transcribe.Language = defaultTranscribeLanguage
	}
	if c.Transcribe.TimeoutSeconds <= 0 {
		c.Transcribe.TimeoutSeconds = defaultTranscribeTimeout
	}
	if c.Transcribe.MaxWordsPerCaption <= 0 {
		c.Transcribe.MaxWordsPerCaption = defaultMaxWordsPerCaption
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxConcurrentJobs <= 0 {
		c.Pipeline.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.Pipeline.QueuePollInterval <= 0 {
		c.Pipeline.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Pipeline.ErrorRetryInterval <= 0 {
		c.Pipeline.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Pipeline.SceneDurationSeconds <= 0 {
		c.Pipeline.SceneDurationSeconds = defaultSceneDurationSeconds
	}
	if c.Pipeline.MaxScenes <= 0 {
		c.Pipeline.MaxScenes = defaultMaxScenes
	}
}

func (c *Config) normalizeCaptions() {
	c.Captions.DefaultStyle = strings.ToLower(strings.TrimSpace(c.Captions.DefaultStyle))
	if c.Captions.DefaultStyle == "" {
		c.Captions.DefaultStyle = defaultCaptionStyle
	}
}

func (c *Config) normalizeMusic() {
	if c.Music.VolumeDB == 0 {
		c.Music.VolumeDB = defaultMusicVolumeDB
	}
	if c.Music.FadeInSeconds < 0 {
		c.Music.FadeInSeconds = defaultMusicFadeInSeconds
	}
	if c.Music.FadeOutSeconds < 0 {
		c.Music.FadeOutSeconds = defaultMusicFadeOutSeconds
	}
}

func (c *Config) normalizeCompositor() {
	c.Compositor.FFmpegBinary = strings.TrimSpace(c.Compositor.FFmpegBinary)
	if c.Compositor.FFmpegBinary == "" {
		c.Compositor.FFmpegBinary = defaultFFmpegBinary
	}
	c.Compositor.FFprobeBinary = strings.TrimSpace(c.Compositor.FFprobeBinary)
	if c.Compositor.FFprobeBinary == "" {
		c.Compositor.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Compositor.OutputHeight <= 0 {
		c.Compositor.OutputHeight = defaultOutputHeight
	}
	if c.Compositor.FPS <= 0 {
		c.Compositor.FPS = defaultFPS
	}
	if c.Compositor.RenderTimeout <= 0 {
		c.Compositor.RenderTimeout = defaultRenderTimeout
	}
	c.Compositor.VideoEncoder = strings.TrimSpace(c.Compositor.VideoEncoder)
	if c.Compositor.VideoEncoder == "" {
		c.Compositor.VideoEncoder = defaultVideoEncoder
	}
	c.Compositor.EncoderPreset = strings.TrimSpace(c.Compositor.EncoderPreset)
	if c.Compositor.EncoderPreset == "" {
		c.Compositor.EncoderPreset = defaultEncoderPreset
	}
	if c.Compositor.ConstantRateQP <= 0 {
		c.Compositor.ConstantRateQP = defaultCRF
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
