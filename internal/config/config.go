// Package config loads the bot configuration from defaults, an optional YAML
// file and environment variables, and validates it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every configuration loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Probe backends.
const (
	ProbeBackendExec   = "exec"
	ProbeBackendDocker = "docker"
)

// Default values for optional settings.
const (
	DefaultLogLevel            = "info"
	DefaultStartCommand        = "docker-compose up -d"
	DefaultStopCommand         = "docker-compose down"
	DefaultProbeBackend        = ProbeBackendExec
	DefaultContainerName       = "hll-geofences-basic"
	DefaultProbeCommand        = "docker ps -q -f name=" + DefaultContainerName
	DefaultRefreshInterval     = 30 * time.Second
	DefaultMaintenanceSchedule = "0 4 * * *"
	DefaultDBPath              = "seedingbot.db"
)

// Config holds all application settings.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Server    ServerConfig    `mapstructure:"server"`
	Commands  CommandsConfig  `mapstructure:"commands"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Status    StatusConfig    `mapstructure:"status"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DiscordConfig holds the bot credential and the status channel.
// Env: DISCORD_TOKEN, CHANNEL_ID.
type DiscordConfig struct {
	Token     string `mapstructure:"token"      validate:"required"`
	ChannelID string `mapstructure:"channel_id" validate:"required"`
}

// ServerConfig describes this deployment. Location scopes the button ids.
// Env: SERVER_LOCATION.
type ServerConfig struct {
	Location string `mapstructure:"location" validate:"required"`
}

// CommandsConfig holds the shell commands that bring the process group up
// and down. WorkDir is where docker-compose finds its compose file.
type CommandsConfig struct {
	Start   string `mapstructure:"start"   validate:"required"`
	Stop    string `mapstructure:"stop"    validate:"required"`
	WorkDir string `mapstructure:"workdir"`
}

type ProbeConfig struct {
	Backend   string `mapstructure:"backend"   validate:"required,oneof=exec docker"`
	Command   string `mapstructure:"command"   validate:"required_if=Backend exec"`
	Container string `mapstructure:"container" validate:"required_if=Backend docker"`
}

// StatusConfig overrides the static texts of the status message.
type StatusConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	FieldName   string `mapstructure:"field_name"`
}

// SchedulerConfig controls the recurring jobs. An empty MaintenanceSchedule
// disables database maintenance.
type SchedulerConfig struct {
	RefreshInterval     time.Duration `mapstructure:"refresh_interval"     validate:"min=1s"`
	MaintenanceSchedule string        `mapstructure:"maintenance_schedule"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LoadConfig reads configuration in order of increasing precedence:
// defaults, the YAML file at path (optional), BOT_* environment variables and
// the DISCORD_TOKEN, CHANNEL_ID and SERVER_LOCATION variables.
func LoadConfig(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return cfg, nil
}

// LoadProbeConfig reads configuration like LoadConfig but validates only the
// log and probe sections, so a status check works without Discord
// credentials.
func LoadProbeConfig(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := validateSections(section{"Log", &cfg.Log}, section{"Probe", &cfg.Probe}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return cfg, nil
}

// read merges defaults, the optional file and the environment without
// validating the result.
func read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// BOT_DISCORD_TOKEN maps to discord.token.
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("%w: failed to bind environment: %w", ErrConfiguration, err)
	}

	if err := readConfigFile(v, path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}
	return cfg, nil
}

// Validate checks that all required settings are present and well formed.
func (c *Config) Validate() error {
	return validationMessages(validator.New().Struct(c), "")
}

// section is a named part of Config validated on its own.
type section struct {
	name  string
	value any
}

// validateSections validates each section, naming fields after the section,
// e.g. Probe.Command.
func validateSections(sections ...section) error {
	validate := validator.New()
	var msgs []string
	for _, sec := range sections {
		if err := validationMessages(validate.Struct(sec.value), sec.name); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// validationMessages turns validator errors into one readable error. section
// replaces the root struct name in field paths; empty drops it.
func validationMessages(err error, section string) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe, section))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError, section string) string {
	// Namespace is "<RootType>.<Field>...".
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	if section != "" {
		field = section + "." + field
	}

	if env, ok := legacyEnv[field]; ok && fe.Tag() == "required" {
		return fmt.Sprintf("missing required setting %s (env %s)", field, env)
	}
	if fe.Param() != "" {
		return fmt.Sprintf("invalid setting %s: failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("invalid setting %s: failed %s", field, fe.Tag())
}

// legacyEnv maps required fields to the environment variables used by
// existing deployment scripts.
var legacyEnv = map[string]string{
	"Discord.Token":     "DISCORD_TOKEN",
	"Discord.ChannelID": "CHANNEL_ID",
	"Server.Location":   "SERVER_LOCATION",
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"discord.token":      {"BOT_DISCORD_TOKEN", "DISCORD_TOKEN"},
		"discord.channel_id": {"BOT_DISCORD_CHANNEL_ID", "CHANNEL_ID"},
		"server.location":    {"BOT_SERVER_LOCATION", "SERVER_LOCATION"},
		"commands.workdir":   {"BOT_COMMANDS_WORKDIR"},
		"status.title":       {"BOT_STATUS_TITLE"},
		"status.description": {"BOT_STATUS_DESCRIPTION"},
		"status.field_name":  {"BOT_STATUS_FIELD_NAME"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// readConfigFile loads path if it exists. A missing file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Configuration file not found, using defaults and environment", "path", path)
			return nil
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	slog.Debug("Configuration file loaded", "path", path)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("commands.start", DefaultStartCommand)
	v.SetDefault("commands.stop", DefaultStopCommand)

	v.SetDefault("probe.backend", DefaultProbeBackend)
	v.SetDefault("probe.command", DefaultProbeCommand)
	v.SetDefault("probe.container", DefaultContainerName)

	v.SetDefault("scheduler.refresh_interval", DefaultRefreshInterval)
	v.SetDefault("scheduler.maintenance_schedule", DefaultMaintenanceSchedule)

	v.SetDefault("database.path", DefaultDBPath)
}
