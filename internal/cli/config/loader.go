package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"state":    "state_path",
	"username": "steam.username",
}

// Loaded is the result of Load.
type Loaded struct {
	*Config
	// FileUsed is the config file that was read, "" if none.
	FileUsed string
	// EnvFileUsed is the .env file that was read, "" if none.
	EnvFileUsed string
}

// findConfigFile returns explicit, else the first ConfigFileNames entry in
// the working directory, else next to the executable.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, dir := range []string{".", executableDir()} {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() (string, error) {
	const name = ".env"
	if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err := godotenv.Load(name); err != nil {
		return "", fmt.Errorf("error reading %s: %w", name, err)
	}
	return name, nil
}

// envKey transforms DMINSTALL_STEAM_USERNAME into steam.username.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"steam", "http"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")
	loaded := &Loaded{}

	envFile, err := loadDotEnv()
	if err != nil {
		return nil, err
	}
	loaded.EnvFileUsed = envFile

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	loaded.FileUsed = findConfigFile(cfgFile)
	if loaded.FileUsed != "" {
		if err := k.Load(file.Provider(loaded.FileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", loaded.FileUsed, err)
		}
	}

	// 3. Environment (DMINSTALL_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Steam.Username = expandEnvVars(cfg.Steam.Username)
	cfg.Steam.Password = expandEnvVars(cfg.Steam.Password)
	cfg.InstallDir = expandHome(cfg.InstallDir)
	cfg.ToolsDir = expandHome(cfg.ToolsDir)
	cfg.StatePath = expandHome(cfg.StatePath)
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.Manifest = expandHome(cfg.Manifest)
	cfg.DesktopDir = expandHome(cfg.DesktopDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loaded.Config = &cfg
	return loaded, nil
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unknown variables are left as written.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

type configKey struct{}

// WithConfig stores the loaded configuration in ctx.
func WithConfig(ctx context.Context, l *Loaded) context.Context {
	return context.WithValue(ctx, configKey{}, l)
}

// FromContext returns the configuration stored by WithConfig, or nil.
func FromContext(ctx context.Context) *Loaded {
	if l, ok := ctx.Value(configKey{}).(*Loaded); ok {
		return l
	}
	return nil
}
