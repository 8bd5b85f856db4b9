package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultPort             = "8080"
	defaultIndexPath        = "/documents.json"
	defaultKVDBPath         = "./.searchbox/queries.db"
	defaultFetchTimeout     = 10 * time.Second
	defaultMaxInFlight      = 0
	defaultLogLevel         = "info"
	defaultSearchMaxResults = 0
	defaultQueryHistory     = 1000
)

type Config struct {
	config *viper.Viper
}

// Load reads config/config.<ENV>.yaml when it can be found and lets
// environment variables override every key.
func Load() (*Config, error) {

	env := os.Getenv(keyEnv)
	if len(env) == 0 {
		env = envLocal
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	setDefaults(viperConfig)
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("site.index_path", defaultIndexPath)
	v.SetDefault("database.kvdb_path", defaultKVDBPath)
	v.SetDefault("fetch.timeout", defaultFetchTimeout)
	v.SetDefault("render.max_in_flight", defaultMaxInFlight)
	v.SetDefault("search.max_results", defaultSearchMaxResults)
	v.SetDefault("database.query_history", defaultQueryHistory)
	v.SetDefault("log.level", defaultLogLevel)
}

func (c *Config) GetPort() string {
	return c.getString("PORT", "server.port")
}

// GetSiteBaseURL is the origin serving documents.json and the per-document
// scheme.json files.
func (c *Config) GetSiteBaseURL() string {
	return c.getString("SITE_BASE_URL", "site.base_url")
}

func (c *Config) GetIndexPath() string {
	return c.getString("INDEX_PATH", "site.index_path")
}

func (c *Config) GetKVDBPath() string {
	return c.getString("KVDB_PATH", "database.kvdb_path")
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "log.level")
}

func (c *Config) GetFetchTimeout() time.Duration {
	if len(c.config.GetString("FETCH_TIMEOUT")) > 0 {
		if timeout := c.config.GetDuration("FETCH_TIMEOUT"); timeout > 0 {
			return timeout
		}
	}
	return c.config.GetDuration("fetch.timeout")
}

// GetMaxInFlight caps concurrent metadata fetches per query; 0 means no cap.
func (c *Config) GetMaxInFlight() int {
	return c.getInt("MAX_IN_FLIGHT", "render.max_in_flight")
}

// GetSearchMaxResults caps the number of matches per query; 0 means no cap.
func (c *Config) GetSearchMaxResults() int {
	return c.getInt("SEARCH_MAX_RESULTS", "search.max_results")
}

// GetQueryHistory is the number of query records kept for status lookups.
func (c *Config) GetQueryHistory() int {
	return c.getInt("QUERY_HISTORY", "database.query_history")
}

func (c *Config) getString(envKey string, fileKey string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}

	return value
}

func (c *Config) getInt(envKey string, fileKey string) int {
	if len(c.config.GetString(envKey)) > 0 {
		return c.config.GetInt(envKey)
	}
	return c.config.GetInt(fileKey)
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
