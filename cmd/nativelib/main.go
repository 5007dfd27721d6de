package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bagtoad/nativelib/internal/abi"
	"github.com/bagtoad/nativelib/internal/config"
	"github.com/bagtoad/nativelib/internal/loader"
	"github.com/bagtoad/nativelib/internal/locator"
	"github.com/bagtoad/nativelib/internal/report"
)

// errReported means the failure was already written to stdout.
var errReported = errors.New("lookup failed")

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr, abi.Getprop)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

type app struct {
	stdout     io.Writer
	stderr     io.Writer
	readProp   abi.PropertyReader
	v          *viper.Viper
	configFile string
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer, readProp abi.PropertyReader) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, readProp: readProp, v: config.New()}
	var trace bool

	rootCmd := &cobra.Command{
		Use:   "nativelib",
		Short: "Locate or extract the libbdkffi.so native library",
		Long: `nativelib finds the directory holding libbdkffi.so on an Android
installation so that a runtime can load it by absolute path.

It checks the native library directory, its nested subdirectories (up to
three levels), and its per-ABI subdirectories, and finally extracts the
library from the installed APK into <data-dir>/bdk_native_libs/<abi>/.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.BindFlags(a.v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDir(trace)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (default $HOME/.nativelib/config.yaml)")
	pf.String("native-lib-dir", "", "Installed native library directory")
	pf.String("apk", "", "Installed application package (APK) path")
	pf.String("data-dir", "", "App-private data directory for extracted libraries")
	pf.StringSlice("abi", nil, "Supported ABIs, most preferred first (default: device abilist or GOARCH)")
	pf.StringP("output", "o", "text", "Output format: text, json or yaml")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&trace, "trace", false, "Print the per-step lookup trace to stderr")

	dirCmd := &cobra.Command{
		Use:   "dir",
		Short: "Print the directory containing libbdkffi.so",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDir(trace)
		},
	}
	dirCmd.Flags().BoolVar(&trace, "trace", false, "Print the per-step lookup trace to stderr")

	var symbol string
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Locate libbdkffi.so and load it with dlopen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLoad(symbol)
		},
	}
	loadCmd.Flags().StringVar(&symbol, "symbol", "", "Also resolve this symbol after loading")

	abisCmd := &cobra.Command{
		Use:   "abis",
		Short: "Print the resolved ABI list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runABIs()
		},
	}

	rootCmd.AddCommand(dirCmd, loadCmd, abisCmd)
	return rootCmd
}

func (a *app) logger() *slog.Logger {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

// setup loads settings and resolves the ABI list.
func (a *app) setup() (*config.Settings, []string, error) {
	settings, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, nil, err
	}
	abis, err := abi.Resolve(settings.ABIs, a.readProp)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot resolve abis: %w", err)
	}
	return settings, abis, nil
}

func (a *app) locate(log *slog.Logger) (*config.Settings, *locator.Result, error) {
	settings, abis, err := a.setup()
	if err != nil {
		return nil, nil, err
	}
	env := settings.Environment(abis)
	log.Debug("environment",
		"native_lib_dir", env.PrimaryDir,
		"apk", env.ArchivePath,
		"staging", env.StagingRoot,
		"abis", strings.Join(env.ABIs, ","))

	res, err := locator.New(log).Locate(env)
	return settings, res, err
}

func (a *app) runDir(trace bool) error {
	settings, res, err := a.locate(a.logger())
	if settings == nil {
		return err
	}

	if trace {
		report.PrintTrace(a.stderr, res)
	}
	if werr := report.Write(a.stdout, settings.Output, report.NewResponse(res, err)); werr != nil {
		return werr
	}
	if err != nil {
		return errReported
	}
	return nil
}

func (a *app) runLoad(symbol string) error {
	log := a.logger()
	settings, res, err := a.locate(log)
	if settings == nil {
		return err
	}
	if err != nil {
		if werr := report.Write(a.stdout, settings.Output, report.NewResponse(res, err)); werr != nil {
			return werr
		}
		return errReported
	}

	lib, err := loader.Open(res.Dir, locator.LibraryName)
	if err != nil {
		return err
	}
	defer lib.Close()
	log.Info("library loaded", "path", lib.Path)

	if symbol != "" {
		if _, err := lib.Lookup(symbol); err != nil {
			return err
		}
		log.Info("symbol resolved", "symbol", symbol)
	}

	fmt.Fprintln(a.stdout, lib.Path)
	return nil
}

func (a *app) runABIs() error {
	_, abis, err := a.setup()
	if err != nil {
		return err
	}
	for _, name := range abis {
		fmt.Fprintln(a.stdout, name)
	}
	return nil
}
