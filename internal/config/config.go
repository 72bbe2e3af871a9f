package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	AppName     string          `yaml:"app_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Audio       AudioConfig     `yaml:"audio"`
	STT         STTConfig       `yaml:"stt"`
	Cleanup     CleanupConfig   `yaml:"cleanup"`
	History     HistoryConfig   `yaml:"history"`
	Bus         BusConfig       `yaml:"bus"`
}

type AudioConfig struct {
	Backend          string `yaml:"backend"` // portaudio, mock
	DeviceID         string `yaml:"device_id"`
	TargetSampleRate int    `yaml:"target_sample_rate"`
	StopGraceMS      int    `yaml:"stop_grace_ms"`
}

type STTConfig struct {
	Mode      string `yaml:"mode"` // exec, mock
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type CleanupConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
	DefaultMode string `yaml:"default_mode"`
	TimeoutMS   int    `yaml:"timeout_ms"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

func Default() Config {
	return Config{
		AppName:     "dictated",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8090,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Audio: AudioConfig{
			Backend:          "portaudio",
			TargetSampleRate: 16000,
			StopGraceMS:      100,
		},
		STT: STTConfig{
			Mode:      "mock",
			TimeoutMS: 45000,
		},
		Cleanup: CleanupConfig{
			Enabled:     true,
			Endpoint:    "http://localhost:11434",
			Model:       "gemma2:2b",
			DefaultMode: "default",
			TimeoutMS:   60000,
		},
		History: HistoryConfig{
			Path:          "./data/dictate-history.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxEntries:    1000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.AppName, "DICTATE_APP_NAME")
	overrideString(&cfg.Environment, "DICTATE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "DICTATE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "DICTATE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "DICTATE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "DICTATE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "DICTATE_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Audio.Backend, "DICTATE_AUDIO_BACKEND")
	overrideString(&cfg.Audio.DeviceID, "DICTATE_AUDIO_DEVICE_ID")
	overrideInt(&cfg.Audio.TargetSampleRate, "DICTATE_AUDIO_TARGET_SAMPLE_RATE")
	overrideInt(&cfg.Audio.StopGraceMS, "DICTATE_AUDIO_STOP_GRACE_MS")
	overrideString(&cfg.STT.Mode, "DICTATE_STT_MODE")
	overrideString(&cfg.STT.Command, "DICTATE_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "DICTATE_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "DICTATE_STT_LANGUAGE")
	overrideInt(&cfg.STT.TimeoutMS, "DICTATE_STT_TIMEOUT_MS")
	overrideBool(&cfg.Cleanup.Enabled, "DICTATE_CLEANUP_ENABLED")
	overrideString(&cfg.Cleanup.Endpoint, "DICTATE_CLEANUP_ENDPOINT")
	overrideString(&cfg.Cleanup.Model, "DICTATE_CLEANUP_MODEL")
	overrideString(&cfg.Cleanup.DefaultMode, "DICTATE_CLEANUP_DEFAULT_MODE")
	overrideInt(&cfg.Cleanup.TimeoutMS, "DICTATE_CLEANUP_TIMEOUT_MS")
	overrideString(&cfg.History.Path, "DICTATE_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "DICTATE_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "DICTATE_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxEntries, "DICTATE_HISTORY_MAX_ENTRIES")
	overrideBool(&cfg.History.VacuumOnStart, "DICTATE_HISTORY_VACUUM_ON_START")
	overrideBool(&cfg.Bus.Enabled, "DICTATE_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "DICTATE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "DICTATE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "DICTATE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "DICTATE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "DICTATE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "DICTATE_BUS_CONNECT_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.AppName == "" {
		return errors.New("app_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch cfg.Audio.Backend {
	case "portaudio", "mock":
	default:
		return errors.New("audio.backend must be one of portaudio|mock")
	}
	if cfg.Audio.TargetSampleRate <= 0 {
		return errors.New("audio.target_sample_rate must be positive")
	}
	if cfg.Audio.StopGraceMS <= 0 {
		return errors.New("audio.stop_grace_ms must be positive")
	}
	switch cfg.STT.Mode {
	case "exec", "mock":
	default:
		return errors.New("stt.mode must be one of exec|mock")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.STT.TimeoutMS <= 0 {
		return errors.New("stt.timeout_ms must be positive")
	}
	if cfg.Cleanup.Enabled {
		if cfg.Cleanup.Endpoint == "" {
			return errors.New("cleanup.endpoint must be set when cleanup is enabled")
		}
		if cfg.Cleanup.Model == "" {
			return errors.New("cleanup.model must be set when cleanup is enabled")
		}
	}
	if cfg.Cleanup.TimeoutMS < 0 {
		return errors.New("cleanup.timeout_ms must be >= 0")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionMode != "ephemeral" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.Bus.Enabled && len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when bus is enabled")
	}
	return nil
}
