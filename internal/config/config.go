package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
)

type Config struct {
	Agent AgentConfig
	Poll  PollConfig
	User  UserConfig
	Log   LogConfig
	Store StoreConfig

	// Dir holds the config file, logs and the default database
	Dir string
	// File is the config file that was read, empty when none was found
	File string
}

type AgentConfig struct {
	URL       string
	PortalURL string
	Timeout   time.Duration
}

type PollConfig struct {
	Interval    time.Duration
	MaxDuration time.Duration // 0 disables the ceiling
}

type UserConfig struct {
	ID string
}

type LogConfig struct {
	Debug bool
}

type StoreConfig struct {
	Path string
}

// Options selects where configuration is read from
type Options struct {
	// File is an explicit config file; it must exist when set
	File string
	// Dir overrides the default config directory
	Dir string
}

// Load layers defaults, the config file and HERITAGE_PLANNER_* environment variables.
// Command line flags are applied by the caller on the returned Config.
func Load(opts Options) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = constants.DefaultConfigDir
	}
	dir, err := ExpandPath(dir)
	if err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetDefault("agent.url", "")
	v.SetDefault("agent.portal_url", "")
	v.SetDefault("agent.timeout", constants.DefaultAgentTimeout)
	v.SetDefault("poll.interval", constants.DefaultPollInterval)
	v.SetDefault("poll.max_duration", constants.DefaultPollCeiling)
	v.SetDefault("user.id", constants.DefaultUserID)
	v.SetDefault("log.debug", false)
	v.SetDefault("store.path", filepath.Join(dir, constants.DefaultStoreFile))

	// HERITAGE_PLANNER_AGENT_URL -> agent.url
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		file, err := ExpandPath(opts.File)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(constants.DefaultConfigFile, filepath.Ext(constants.DefaultConfigFile)))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	storePath, err := ExpandPath(v.GetString("store.path"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Agent: AgentConfig{
			URL:       strings.TrimSpace(v.GetString("agent.url")),
			PortalURL: strings.TrimSpace(v.GetString("agent.portal_url")),
			Timeout:   v.GetDuration("agent.timeout"),
		},
		Poll: PollConfig{
			Interval:    v.GetDuration("poll.interval"),
			MaxDuration: v.GetDuration("poll.max_duration"),
		},
		User: UserConfig{
			ID: v.GetString("user.id"),
		},
		Log: LogConfig{
			Debug: v.GetBool("log.debug"),
		},
		Store: StoreConfig{
			Path: storePath,
		},
		Dir:  dir,
		File: v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Agent.Timeout <= 0 {
		return fmt.Errorf("agent.timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.MaxDuration < 0 {
		return fmt.Errorf("poll.max_duration cannot be negative")
	}
	if strings.TrimSpace(c.User.ID) == "" {
		return fmt.Errorf("user.id cannot be empty")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
