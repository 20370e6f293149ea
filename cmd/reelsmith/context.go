package main

import (
	"fmt"
	"strings"
	"sync"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
)

type commandContext struct {
	serverFlag *string
	tokenFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(serverFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		tokenFlag:  tokenFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

// apiClient resolves the daemon address and token from flags first, config
// second. The --server flag works without a readable config file.
func (c *commandContext) apiClient() (*api.Client, error) {
	server := ""
	if c.serverFlag != nil {
		server = strings.TrimSpace(*c.serverFlag)
	}
	token := ""
	if c.tokenFlag != nil {
		token = strings.TrimSpace(*c.tokenFlag)
	}

	if server == "" || token == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			if server == "" {
				return nil, fmt.Errorf("resolve daemon address: %w", err)
			}
		} else {
			if server == "" {
				server = strings.TrimSpace(cfg.Paths.APIBind)
			}
			if token == "" {
				token = strings.TrimSpace(cfg.Paths.APIToken)
			}
		}
	}
	if server == "" {
		return nil, fmt.Errorf("daemon address not configured; set paths.api_bind or pass --server")
	}
	return api.NewClient(server, token)
}
