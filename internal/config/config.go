package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. WASMDEMO_LOG_LEVEL.
const EnvPrefix = "WASMDEMO"

type Config struct {
	ArtifactPaths []string    `mapstructure:"artifact_paths"`
	LogLevel      string      `mapstructure:"log_level"`
	Output        string      `mapstructure:"output"`
	Wasm          WasmConfig  `mapstructure:"wasm"`
	Watch         WatchConfig `mapstructure:"watch"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory. Empty keeps compiled code in memory only.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Per-call execution timeout (seconds). Zero disables it.
	ExecutionTimeout int `mapstructure:"execution_timeout"`
}

// WatchConfig controls reloading artifacts when their files change.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// Timeout returns ExecutionTimeout as a duration.
func (c WasmConfig) Timeout() time.Duration {
	return time.Duration(c.ExecutionTimeout) * time.Second
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("artifact_paths", []string{"./artifacts"})
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "text")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30)

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce", 200*time.Millisecond)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
