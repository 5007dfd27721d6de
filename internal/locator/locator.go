// Package locator finds the directory holding the native library, trying an
// ordered chain of strategies and extracting it from the application package
// as a last resort.
package locator

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/bagtoad/nativelib/internal/errors"
	"github.com/bagtoad/nativelib/internal/extractor"
	"github.com/bagtoad/nativelib/internal/scanner"
)

// LibraryName is the file every strategy searches for.
const LibraryName = "libbdkffi.so"

// Step names, in chain order.
const (
	StepDirect  = "direct"
	StepScan    = "scan"
	StepABIDir  = "abi-dir"
	StepExtract = "extract"
)

// Environment describes the host installation. It is supplied by the caller
// rather than read from global state.
type Environment struct {
	PrimaryDir  string   // installed native library directory; may not exist
	ABIs        []string // supported ABIs, most preferred first
	ArchivePath string   // installed application package
	StagingRoot string   // private writable root for extracted copies
}

// Strategy is one link of the fallback chain.
type Strategy struct {
	Name            string
	// NeedsPrimaryDir strategies are skipped when the primary directory is missing.
	NeedsPrimaryDir bool
	Resolve         func(env Environment) Probe
}

// Locator runs the fallback chain.
type Locator struct {
	log        *slog.Logger
	strategies []Strategy
}

// New returns a Locator running the default chain: direct, scan, abi-dir,
// extract. A nil logger discards output.
func New(log *slog.Logger) *Locator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l := &Locator{log: log}
	l.strategies = []Strategy{
		{Name: StepDirect, NeedsPrimaryDir: true, Resolve: direct},
		{Name: StepScan, NeedsPrimaryDir: true, Resolve: scan},
		{Name: StepABIDir, NeedsPrimaryDir: true, Resolve: abiDir},
		{Name: StepExtract, Resolve: l.extract},
	}
	return l
}

// Strategies returns a copy of the chain in evaluation order.
func (l *Locator) Strategies() []Strategy {
	return slices.Clone(l.strategies)
}

// Locate returns the first directory produced by the chain. On failure the
// error is a KindNotFound *errors.Error naming the library and the primary
// directory; the Result still carries every probe.
func (l *Locator) Locate(env Environment) (*Result, error) {
	res := &Result{Probes: make([]Probe, 0, len(l.strategies))}

	primaryOK := scanner.IsDir(env.PrimaryDir)
	var unavailable error
	if !primaryOK {
		unavailable = errors.New(errors.KindEnvironmentUnavailable, "stat", env.PrimaryDir,
			"native library directory does not exist")
		l.log.Warn("native library directory unavailable, skipping to extraction", "dir", env.PrimaryDir)
	}

	for _, s := range l.strategies {
		if res.Dir != "" {
			res.Probes = append(res.Probes, Probe{Step: s.Name, Outcome: NotAttempted})
			continue
		}
		if s.NeedsPrimaryDir && !primaryOK {
			res.Probes = append(res.Probes, Probe{Step: s.Name, Outcome: NotAttempted, Err: unavailable})
			continue
		}

		p := s.Resolve(env)
		p.Step = s.Name
		res.Probes = append(res.Probes, p)

		switch p.Outcome {
		case Found:
			l.log.Debug("library located", "step", s.Name, "dir", p.Dir)
			res.Dir = p.Dir
		case Errored:
			l.log.Debug("strategy failed", "step", s.Name, "error", p.Err)
		default:
			l.log.Debug("library not found", "step", s.Name)
		}
	}

	if res.Dir != "" {
		return res, nil
	}

	cause := lastErr(res.Probes)
	return res, &errors.Error{
		Kind: errors.KindNotFound,
		Op:   "locate",
		Path: env.PrimaryDir,
		Msg:  fmt.Sprintf("could not locate %s in %s", LibraryName, env.PrimaryDir),
		Err:  cause,
	}
}

func lastErr(probes []Probe) error {
	for i := len(probes) - 1; i >= 0; i-- {
		if probes[i].Err != nil {
			return probes[i].Err
		}
	}
	return nil
}

func found(dir string) Probe {
	return Probe{Outcome: Found, Dir: dir}
}

// direct checks the primary directory itself.
func direct(env Environment) Probe {
	if scanner.HasFile(env.PrimaryDir, LibraryName) {
		return found(env.PrimaryDir)
	}
	return Probe{Outcome: Absent}
}

// scan searches nested subdirectories of the primary directory.
func scan(env Environment) Probe {
	if dir, ok := scanner.FindDir(env.PrimaryDir, LibraryName, scanner.MaxDepth); ok {
		return found(dir)
	}
	return Probe{Outcome: Absent}
}

// abiDir checks <primary>/<abi> for each ABI in preference order.
func abiDir(env Environment) Probe {
	for _, abi := range env.ABIs {
		dir := filepath.Join(env.PrimaryDir, abi)
		if scanner.HasFile(dir, LibraryName) {
			return found(dir)
		}
	}
	return Probe{Outcome: Absent}
}

// extract pulls the library out of the application package.
func (l *Locator) extract(env Environment) Probe {
	if env.ArchivePath == "" || len(env.ABIs) == 0 {
		return Probe{Outcome: NotAttempted, Err: errors.New(errors.KindNotFound, "extract", env.ArchivePath,
			"no archive path or abi list")}
	}

	dir, err := extractor.Extract(env.ArchivePath, env.ABIs, env.StagingRoot, LibraryName, l.log)
	switch {
	case err == nil:
		return found(dir)
	case errors.IsKind(err, errors.KindNotFound):
		return Probe{Outcome: Absent, Err: err}
	default:
		return Probe{Outcome: Errored, Err: err}
	}
}
