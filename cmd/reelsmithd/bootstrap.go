package main

import (
	"log/slog"
	"strings"
	"time"

	"reelsmith/internal/audio"
	"reelsmith/internal/captions"
	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/enhance"
	"reelsmith/internal/jobstore"
	"reelsmith/internal/logging"
	"reelsmith/internal/mediapair"
	"reelsmith/internal/music"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/review"
	"reelsmith/internal/services/ffmpeg"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/pexels"
	"reelsmith/internal/services/pixabay"
	"reelsmith/internal/services/speech"
	"reelsmith/internal/services/whisper"
)

// buildOrchestrator wires the provider clients and stages into an
// orchestrator. Providers without configured keys are simply left out; every
// stage carries a keyless fallback.
func buildOrchestrator(cfg *config.Config, store *jobstore.Store, logger *slog.Logger) *pipeline.Orchestrator {
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		VisionModel:    cfg.LLM.VisionModel,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	ffmpegService := ffmpeg.NewService(cfg.Compositor.FFmpegBinary, cfg.Compositor.FFprobeBinary)

	enhancer := enhance.New(llmClient, enhance.Config{
		DefaultSceneSeconds: cfg.Pipeline.SceneDurationSeconds,
		MaxScenes:           cfg.Pipeline.MaxScenes,
	}, logger)

	pairer := mediapair.New(
		mediapair.NewPlanner(llmClient),
		searchProviders(cfg, logger),
		mediapair.NewVisionVerifier(llmClient, ffmpegService, cfg.WorkDir()),
		mediapair.Config{MediaDir: cfg.MediaDir()},
		logger,
	)

	var tts audio.Synthesizer
	if strings.TrimSpace(cfg.TTS.APIKey) != "" {
		client, err := speech.New(speech.Config{
			APIKey:         cfg.TTS.APIKey,
			BaseURL:        cfg.TTS.BaseURL,
			Model:          cfg.TTS.Model,
			Voice:          cfg.TTS.Voice,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
		})
		if err != nil {
			logger.Warn("tts client unavailable", logging.Error(err))
		} else {
			tts = client
		}
	}
	audioStage := audio.New(tts, ffmpegService, cfg.VoiceoverDir(), logger)

	captionStage := captions.New(
		whisper.NewService(whisper.Config{
			Binary:   cfg.Transcribe.Binary,
			Model:    cfg.Transcribe.Model,
			Language: cfg.Transcribe.Language,
		}),
		captions.Config{
			CaptionDir:         cfg.CaptionDir(),
			MaxWordsPerCaption: cfg.Transcribe.MaxWordsPerCaption,
		},
		logger,
	)

	musicStage := music.New(ffmpegService, music.Config{
		MusicDir:       cfg.Paths.MusicDir,
		VolumeDB:       cfg.Music.VolumeDB,
		FadeInSeconds:  cfg.Music.FadeInSeconds,
		FadeOutSeconds: cfg.Music.FadeOutSeconds,
	}, logger)

	compositor := compose.NewFFmpegCompositor(compose.Config{
		FFmpegBinary:   cfg.Compositor.FFmpegBinary,
		OutputHeight:   cfg.Compositor.OutputHeight,
		FPS:            cfg.Compositor.FPS,
		VideoEncoder:   cfg.Compositor.VideoEncoder,
		EncoderPreset:  cfg.Compositor.EncoderPreset,
		ConstantRateQP: cfg.Compositor.ConstantRateQP,
		RenderTimeout:  time.Duration(cfg.Compositor.RenderTimeout) * time.Second,
	}, logger)

	deps := pipeline.Deps{
		Enhancer:   enhancer,
		Pairer:     pairer,
		Audio:      audioStage,
		Captions:   captionStage,
		Music:      musicStage,
		Compositor: compositor,
		Reviewer:   review.New(llmClient, logger),
	}
	return pipeline.NewOrchestrator(cfg, store, deps, notifications.NewService(cfg), logger)
}

func searchProviders(cfg *config.Config, logger *slog.Logger) []mediapair.SearchProvider {
	var providers []mediapair.SearchProvider
	if key := strings.TrimSpace(cfg.Media.PexelsAPIKey); key != "" {
		client, err := pexels.New(key)
		if err != nil {
			logger.Warn("pexels client unavailable", logging.Error(err))
		} else {
			providers = append(providers, mediapair.SearchProvider{
				Name:     "pexels",
				Searcher: mediapair.NewPexelsSearcher(client),
			})
		}
	}
	if key := strings.TrimSpace(cfg.Media.PixabayAPIKey); key != "" {
		client, err := pixabay.New(key)
		if err != nil {
			logger.Warn("pixabay client unavailable", logging.Error(err))
		} else {
			providers = append(providers, mediapair.SearchProvider{
				Name:     "pixabay",
				Searcher: mediapair.NewPixabaySearcher(client),
			})
		}
	}
	return providers
}
