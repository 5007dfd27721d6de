// Package config builds the host environment description from flags,
// environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bagtoad/nativelib/internal/locator"
)

// Configuration keys.
const (
	KeyNativeLibDir = "native_lib_dir"
	KeySourceDir    = "source_dir"
	KeyDataDir      = "data_dir"
	KeyABIs         = "abis"
	KeyOutput       = "output"
)

// EnvPrefix prefixes every environment variable, e.g. NATIVELIB_SOURCE_DIR.
const EnvPrefix = "NATIVELIB"

// StagingDirName is the directory under the data dir that holds extracted
// libraries, one subdirectory per ABI.
const StagingDirName = "bdk_native_libs"

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"native-lib-dir": KeyNativeLibDir,
	"apk":            KeySourceDir,
	"data-dir":       KeyDataDir,
	"abi":            KeyABIs,
	"output":         KeyOutput,
}

// Settings is the resolved configuration.
type Settings struct {
	NativeLibDir string   `mapstructure:"native_lib_dir"` // installed native library dir
	SourceDir    string   `mapstructure:"source_dir"`     // installed APK path
	DataDir      string   `mapstructure:"data_dir"`       // app-private data root
	ABIs         []string `mapstructure:"abis"`
	Output       string   `mapstructure:"output"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyNativeLibDir, "")
	v.SetDefault(KeySourceDir, "")
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyABIs, []string{})
	v.SetDefault(KeyOutput, "text")
	return v
}

// BindFlags binds the known flags present in fs to their configuration keys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// DefaultConfigDir returns ~/.nativelib.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".nativelib"), nil
}

// Load reads configFile (or config.yaml from the default locations when
// empty) and returns the merged settings. A missing default config file is
// not an error; a missing explicit one is.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := DefaultConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := settings.normalize(); err != nil {
		return nil, err
	}
	return settings, nil
}

// normalize makes paths absolute and fills in the data dir.
func (s *Settings) normalize() error {
	if s.DataDir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("no data dir configured and no cache dir available: %w", err)
		}
		s.DataDir = filepath.Join(cache, "nativelib")
	}

	for _, p := range []*string{&s.NativeLibDir, &s.SourceDir, &s.DataDir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("cannot resolve %s: %w", *p, err)
		}
		*p = abs
	}

	switch s.Output {
	case "", "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", s.Output)
	}
	return nil
}

// StagingRoot returns <data dir>/bdk_native_libs.
func (s *Settings) StagingRoot() string {
	return filepath.Join(s.DataDir, StagingDirName)
}

// Environment returns the locator environment for these settings and the
// resolved ABI list.
func (s *Settings) Environment(abis []string) locator.Environment {
	return locator.Environment{
		PrimaryDir:  s.NativeLibDir,
		ABIs:        abis,
		ArchivePath: s.SourceDir,
		StagingRoot: s.StagingRoot(),
	}
}
