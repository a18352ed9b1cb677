package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. XMLEXTRACT_LOG_LEVEL.
	EnvPrefix = "XMLEXTRACT"

	configName = "xmlextract"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty path searches the default
// locations and tolerates a missing file.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		v:          viper.New(),
	}
}

// Load reads configuration from defaults, file and environment.
func (l *Loader) Load() (*Config, error) {
	v := l.v
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := l.readFile(); err != nil {
		return nil, fmt.Errorf("%w: load config file: %v", models.ErrInvalidConfig, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", models.ErrInvalidConfig, err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Import.OnConflict = strings.ToLower(cfg.Import.OnConflict)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}

	return cfg, nil
}

// ConfigFileUsed returns the path of the file that was loaded, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) readFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		return l.v.ReadInConfig()
	}

	l.v.SetConfigName(configName)
	for _, path := range defaultPaths() {
		l.v.AddConfigPath(path)
	}

	err := l.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// defaultPaths returns default config file locations.
func defaultPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", configName),
			filepath.Join(homeDir, "."+configName),
		)
	}

	return paths
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.color", cfg.Log.Color)
	v.SetDefault("output.encoding", cfg.Output.Encoding)
	v.SetDefault("import.config_dir", cfg.Import.ConfigDir)
	v.SetDefault("import.dry_run", cfg.Import.DryRun)
	v.SetDefault("import.on_conflict", cfg.Import.OnConflict)
}

// SaveExample writes an example config file. The format follows the file
// extension (json, yaml, toml).
func SaveExample(path string) error {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return os.Chmod(path, 0600)
}
