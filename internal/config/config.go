package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "host"
	envPrefix  = "STRANSLATE_HOST"
)

type Config struct {
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	Update    UpdateConfig    `mapstructure:"update"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Launch    LaunchConfig    `mapstructure:"launch"`
	Source    SourceConfig    `mapstructure:"source"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type UpdateConfig struct {
	// Executable is the file name relaunched from the installation root.
	Executable     string   `mapstructure:"executable"`
	Preserve       []string `mapstructure:"preserve"`
	ArchiveExt     string   `mapstructure:"archive_ext"`
	// MaxWaitSeconds caps --wait-time. Zero means no cap.
	MaxWaitSeconds int      `mapstructure:"max_wait_seconds"`
}

type SchedulerConfig struct {
	Backend     string `mapstructure:"backend"`
	Author      string `mapstructure:"author"`
	FallbackSID string `mapstructure:"fallback_sid"`
}

type LaunchConfig struct {
	// MaxDelaySeconds caps --delay. Zero means no cap.
	MaxDelaySeconds int `mapstructure:"max_delay_seconds"`
}

// AuditConfig locates the operations journal. An empty File disables it.
type AuditConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type SourceConfig struct {
	TimeoutSeconds int         `mapstructure:"timeout_seconds"`
	S3             S3Config    `mapstructure:"s3"`
	GCS            GCSConfig   `mapstructure:"gcs"`
	Azure          AzureConfig `mapstructure:"azure"`
	B2             B2Config    `mapstructure:"b2"`
}

type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureConfig struct {
	AccountURL       string `mapstructure:"account_url"`
	ConnectionString string `mapstructure:"connection_string"`
}

type B2Config struct {
	AccountID      string `mapstructure:"account_id"`
	ApplicationKey string `mapstructure:"application_key"`
}

func Default() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  5,
		LogMaxBackups: 3,
		Update: UpdateConfig{
			Executable: "STranslate.exe",
			Preserve:   []string{"log", "portable_config", "tmp"},
			ArchiveExt: ".zip",
		},
		Scheduler: SchedulerConfig{
			Backend:     "schtasks",
			Author:      "stranslate - zggsong",
			FallbackSID: "S-1-5-32-544",
		},
		Source: SourceConfig{
			TimeoutSeconds: 600,
		},
		Audit: AuditConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads cfgFile, or host.yaml from the search path when cfgFile is
// empty. A missing default file is not an error. Environment variables
// (STRANSLATE_HOST_UPDATE_EXECUTABLE, ...) override file values, and
// flags that were set explicitly override both.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	v := viper.New()

	setDefaults(v, cfg)
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		for _, dir := range searchDirs() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)
	v.SetDefault("log_max_backups", cfg.LogMaxBackups)

	v.SetDefault("update.executable", cfg.Update.Executable)
	v.SetDefault("update.preserve", cfg.Update.Preserve)
	v.SetDefault("update.archive_ext", cfg.Update.ArchiveExt)
	v.SetDefault("update.max_wait_seconds", cfg.Update.MaxWaitSeconds)

	v.SetDefault("scheduler.backend", cfg.Scheduler.Backend)
	v.SetDefault("scheduler.author", cfg.Scheduler.Author)
	v.SetDefault("scheduler.fallback_sid", cfg.Scheduler.FallbackSID)

	v.SetDefault("launch.max_delay_seconds", cfg.Launch.MaxDelaySeconds)

	v.SetDefault("source.timeout_seconds", cfg.Source.TimeoutSeconds)
	v.SetDefault("source.s3.region", "")
	v.SetDefault("source.s3.endpoint", "")
	v.SetDefault("source.s3.use_path_style", false)
	v.SetDefault("source.s3.access_key_id", "")
	v.SetDefault("source.s3.secret_access_key", "")
	v.SetDefault("source.gcs.credentials_file", "")
	v.SetDefault("source.azure.account_url", "")
	v.SetDefault("source.azure.connection_string", "")
	v.SetDefault("source.b2.account_id", "")
	v.SetDefault("source.b2.application_key", "")

	v.SetDefault("audit.file", cfg.Audit.File)
	v.SetDefault("audit.max_size_mb", cfg.Audit.MaxSizeMB)
	v.SetDefault("audit.max_backups", cfg.Audit.MaxBackups)
}

// flagKeys maps persistent CLI flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-format": "log_format",
	"log-file":   "log_file",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// searchDirs lists where host.yaml is looked up: next to the executable,
// in the app's portable_config directory, then the per-user config dir.
func searchDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Join(exeDir, "portable_config"))
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, "STranslate"))
	}
	return append(dirs, ".")
}
