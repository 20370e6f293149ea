package config

const (
	defaultDataDir              = "~/.local/share/reelsmith"
	defaultOutputDir            = "~/.local/share/reelsmith/output"
	defaultLogDir               = "~/.local/share/reelsmith/logs"
	defaultMusicDir             = "~/.local/share/reelsmith/music"
	defaultAPIBind              = "127.0.0.1:7844"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "openai/gpt-4o-mini"
	defaultLLMVisionModel       = "openai/gpt-4o"
	defaultLLMReferer           = "https://github.com/reelsmith/reelsmith"
	defaultLLMTitle             = "Reelsmith"
	defaultLLMTimeoutSeconds    = 60
	defaultMediaRequestTimeout  = 30
	defaultTTSBaseURL           = "https://api.openai.com/v1/audio/speech"
	defaultTTSModel             = "tts-1"
	defaultTTSVoice             = "alloy"
	defaultTTSTimeoutSeconds    = 120
	defaultTranscribeBinary     = "whisperx"
	defaultTranscribeModel      = "small"
	defaultTranscribeLanguage   = "en"
	defaultTranscribeTimeout    = 600
	defaultMaxWordsPerCaption   = 3
	defaultMaxConcurrentJobs    = 2
	defaultQueuePollInterval    = 5
	defaultErrorRetryInterval   = 10
	defaultSceneDurationSeconds = 5.0
	defaultMaxScenes            = 12
	defaultCaptionStyle         = "modern"
	defaultMusicVolumeDB        = -12.0
	defaultMusicFadeInSeconds   = 2.0
	defaultMusicFadeOutSeconds  = 3.0
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultOutputHeight         = 1080
	defaultFPS                  = 30
	defaultRenderTimeout        = 1800
	defaultVideoEncoder         = "libx264"
	defaultEncoderPreset        = "medium"
	defaultCRF                  = 23
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			MusicDir:  defaultMusicDir,
			APIBind:   defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			VisionModel:    defaultLLMVisionModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Media: Media{
			PreferVideos:   false,
			RequestTimeout: defaultMediaRequestTimeout,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			Voice:          defaultTTSVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Transcribe: Transcribe{
			Binary:             defaultTranscribeBinary,
			Model:              defaultTranscribeModel,
			Language:           defaultTranscribeLanguage,
			TimeoutSeconds:     defaultTranscribeTimeout,
			MaxWordsPerCaption: defaultMaxWordsPerCaption,
		},
		Pipeline: Pipeline{
			MaxConcurrentJobs:    defaultMaxConcurrentJobs,
			QueuePollInterval:    defaultQueuePollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			SceneDurationSeconds: defaultSceneDurationSeconds,
			MaxScenes:            defaultMaxScenes,
		},
		Captions: Captions{
			DefaultStyle: defaultCaptionStyle,
		},
		Music: Music{
			VolumeDB:       defaultMusicVolumeDB,
			FadeInSeconds:  defaultMusicFadeInSeconds,
			FadeOutSeconds: defaultMusicFadeOutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobComplete:    true,
			JobFailed:      true,
			Queue:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Compositor: Compositor{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			OutputHeight:   defaultOutputHeight,
			FPS:            defaultFPS,
			RenderTimeout:  defaultRenderTimeout,
			VideoEncoder:   defaultVideoEncoder,
			EncoderPreset:  defaultEncoderPreset,
			ConstantRateQP: defaultCRF,
		},
	}
}
