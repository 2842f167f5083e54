// Package config implements application.ConfigProvider on top of viper:
// env-prefixed automatic env binding plus a YAML config file searched
// across the working directory, the user's home, and /etc.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Provider implements application.ConfigProvider.
type Provider struct {
	viper *viper.Viper
}

// NewProvider creates a config Provider, reading TCS_-prefixed
// environment variables and an optional testcascade.yaml from the
// working directory, $HOME/.testcascade, or /etc/testcascade.
func NewProvider() *Provider {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("TCS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName("testcascade")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.testcascade")
	v.AddConfigPath("/etc/testcascade")

	_ = v.ReadInConfig()

	return &Provider{viper: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("execution.request_timeout_seconds", 30)
	v.SetDefault("execution.max_parallelism", 4)
	v.SetDefault("execution.max_retries", 0)
	v.SetDefault("execution.retry_delay_ms", 1000)
	v.SetDefault("execution.allow_untrusted_ssl", false)
	v.SetDefault("execution.rate_limit_rps", 0.0)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash-lite")
	v.SetDefault("storage.upload_dir", "uploads")
}

// GetString retrieves a string configuration value.
func (p *Provider) GetString(key string) string { return p.viper.GetString(key) }

// GetInt retrieves an integer configuration value.
func (p *Provider) GetInt(key string) int { return p.viper.GetInt(key) }

// GetBool retrieves a boolean configuration value.
func (p *Provider) GetBool(key string) bool { return p.viper.GetBool(key) }

// GetFloat64 retrieves a floating point configuration value.
func (p *Provider) GetFloat64(key string) float64 { return p.viper.GetFloat64(key) }

// GetConfigFilePath returns the path to the config file actually used,
// empty if none was found.
func (p *Provider) GetConfigFilePath() string { return p.viper.ConfigFileUsed() }

// SaveConfig writes the current configuration to filePath, creating
// parent directories as needed.
func (p *Provider) SaveConfig(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return p.viper.WriteConfigAs(filePath)
}

// Set overrides a configuration value at runtime, used by CLI flags that
// take precedence over file/env configuration.
func (p *Provider) Set(key string, value interface{}) {
	p.viper.Set(key, value)
}
