package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateMusic(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCompositor(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.max_concurrent_jobs": c.Pipeline.MaxConcurrentJobs,
		"pipeline.queue_poll_interval": c.Pipeline.QueuePollInterval,
		"pipeline.error_retry_interval": c.Pipeline.ErrorRetryInterval,
		"pipeline.max_scenes":          c.Pipeline.MaxScenes,
	})
}

func (c *Config) validateMusic() error {
	if c.Music.VolumeDB > 0 {
		return errors.New("music.volume_db must be zero or negative (attenuation)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func (c *Config) validateCompositor() error {
	return ensurePositiveMap(map[string]int{
		"compositor.output_height":  c.Compositor.OutputHeight,
		"compositor.fps":            c.Compositor.FPS,
		"compositor.render_timeout": c.Compositor.RenderTimeout,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
