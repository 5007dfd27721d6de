package locator

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagtoad/nativelib/internal/errors"
	"github.com/bagtoad/nativelib/internal/testutil"
)

var defaultABIs = []string{"arm64-v8a", "armeabi-v7a"}

// newEnv returns an environment rooted in a temp dir. The primary dir is
// created only when withPrimary is set.
func newEnv(t *testing.T, withPrimary bool) Environment {
	t.Helper()
	root := t.TempDir()
	env := Environment{
		PrimaryDir:  filepath.Join(root, "app", "lib"),
		ABIs:        defaultABIs,
		ArchivePath: filepath.Join(root, "app", "base.apk"),
		StagingRoot: filepath.Join(root, "data", "bdk_native_libs"),
	}
	if withPrimary {
		require.NoError(t, os.MkdirAll(env.PrimaryDir, 0755))
	}
	return env
}

func outcomes(res *Result) map[string]Outcome {
	m := make(map[string]Outcome, len(res.Probes))
	for _, p := range res.Probes {
		m[p.Step] = p.Outcome
	}
	return m
}

func TestLocateDirect(t *testing.T) {
	t.Parallel()

	env := newEnv(t, true)
	testutil.WriteFile(t, filepath.Join(env.PrimaryDir, LibraryName), "lib")
	// Archive deliberately missing: the direct hit must not need it.

	res, err := New(nil).Locate(env)
	require.NoError(t, err)
	assert.Equal(t, env.PrimaryDir, res.Dir)

	got := outcomes(res)
	assert.Equal(t, Found, got[StepDirect])
	assert.Equal(t, NotAttempted, got[StepScan])
	assert.Equal(t, NotAttempted, got[StepABIDir])
	assert.Equal(t, NotAttempted, got[StepExtract])
	assert.Nil(t, testutil.ListDir(t, env.StagingRoot))
}

func TestLocateNestedDepthTwo(t *testing.T) {
	t.Parallel()

	env := newEnv(t, true)
	nested := filepath.Join(env.PrimaryDir, "vendor", "arm64")
	testutil.WriteFile(t, filepath.Join(nested, LibraryName), "lib")
	testutil.WriteFile(t, filepath.Join(nested, "deeper", LibraryName), "deeper")

	res, err := New(nil).Locate(env)
	require.NoError(t, err)
	assert.Equal(t, nested, res.Dir)

	winner, ok := res.Winner()
	require.True(t, ok)
	assert.Equal(t, StepScan, winner.Step)
}

func TestLocateScanRunsBeforeABIProbe(t *testing.T) {
	t.Parallel()

	env := newEnv(t, true)
	abiDir := filepath.Join(env.PrimaryDir, "armeabi-v7a")
	testutil.WriteFile(t, filepath.Join(abiDir, LibraryName), "lib")

	res, err := New(nil).Locate(env)
	require.NoError(t, err)
	assert.Equal(t, abiDir, res.Dir)

	got := outcomes(res)
	assert.Equal(t, Absent, got[StepDirect])
	assert.Equal(t, Found, got[StepScan])
	assert.Equal(t, NotAttempted, got[StepABIDir])

	steps := make([]string, 0, len(res.Probes))
	for _, p := range res.Probes {
		steps = append(steps, p.Step)
	}
	assert.Equal(t, []string{StepDirect, StepScan, StepABIDir, StepExtract}, steps)
}

func TestABIDirPrefersEarlierABI(t *testing.T) {
	t.Parallel()

	env := newEnv(t, true)
	testutil.WriteFile(t, filepath.Join(env.PrimaryDir, "armeabi-v7a", LibraryName), "arm32")
	testutil.WriteFile(t, filepath.Join(env.PrimaryDir, "arm64-v8a", LibraryName), "arm64")

	p := abiDir(env)
	assert.Equal(t, Found, p.Outcome)
	assert.Equal(t, filepath.Join(env.PrimaryDir, "arm64-v8a"), p.Dir)

	env.ABIs = []string{"x86_64"}
	assert.Equal(t, Absent, abiDir(env).Outcome)
}

func TestLocateExtractsWhenPrimaryMissing(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	testutil.WriteAPK(t, env.ArchivePath, map[string]string{
		"lib/arm64-v8a/libbdkffi.so":   "arm64",
		"lib/armeabi-v7a/libbdkffi.so": "arm32",
	})

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res, err := New(log).Locate(env)
	require.NoError(t, err)

	want := filepath.Join(env.StagingRoot, "arm64-v8a")
	assert.Equal(t, want, res.Dir)
	assert.Equal(t, "arm64", testutil.ReadFile(t, filepath.Join(want, LibraryName)))
	assert.Contains(t, logs.String(), "native library directory unavailable")

	for _, p := range res.Probes[:3] {
		assert.Equal(t, NotAttempted, p.Outcome, p.Step)
		assert.True(t, errors.Is(p.Err, errors.ErrEnvironmentUnavailable), p.Step)
	}
	assert.Equal(t, Found, res.Probes[3].Outcome)
}

func TestLocateExtractionIdempotent(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	testutil.WriteAPK(t, env.ArchivePath, map[string]string{
		"lib/arm64-v8a/libbdkffi.so": "arm64",
	})

	l := New(nil)
	first, err := l.Locate(env)
	require.NoError(t, err)

	dest := filepath.Join(first.Dir, LibraryName)
	require.NoError(t, os.WriteFile(dest, []byte("sentinel"), 0644))

	second, err := l.Locate(env)
	require.NoError(t, err)
	assert.Equal(t, first.Dir, second.Dir)
	assert.Equal(t, "sentinel", testutil.ReadFile(t, dest))
}

func TestLocateNoEntryForAnyABI(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	testutil.WriteAPK(t, env.ArchivePath, map[string]string{
		"lib/x86_64/libbdkffi.so": "x86",
	})
	require.NoError(t, os.MkdirAll(env.StagingRoot, 0755))

	res, err := New(nil).Locate(env)
	require.Error(t, err)
	assert.Empty(t, res.Dir)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, testutil.ListDir(t, env.StagingRoot), "no staging subdirectories expected")
	assert.Equal(t, Absent, res.Probes[3].Outcome)
}

func TestLocateNotFoundAnywhere(t *testing.T) {
	t.Parallel()

	env := newEnv(t, true)
	testutil.WriteFile(t, filepath.Join(env.PrimaryDir, "libother.so"), "other")
	testutil.WriteAPK(t, env.ArchivePath, map[string]string{
		"classes.dex": "dex",
	})

	res, err := New(nil).Locate(env)
	require.Error(t, err)
	assert.Empty(t, res.Dir)
	assert.Equal(t, errors.CodeLibNotFound, errors.Code(err))
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.Contains(t, errors.Message(err), LibraryName)
	assert.Contains(t, errors.Message(err), env.PrimaryDir)

	for _, p := range res.Probes {
		assert.Equal(t, Absent, p.Outcome, p.Step)
	}
}

func TestLocateArchiveUnreadable(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	testutil.WriteFile(t, env.ArchivePath, "corrupt")

	res, err := New(nil).Locate(env)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound), "I/O failures surface as not found")
	assert.True(t, errors.Is(err, errors.ErrExtractionIO), "cause is kept for diagnosis")
	assert.Equal(t, Errored, res.Probes[3].Outcome)
}

func TestLocatePrimaryDirIsFile(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	testutil.WriteFile(t, env.PrimaryDir, "not a dir")
	testutil.WriteAPK(t, env.ArchivePath, map[string]string{
		"lib/armeabi-v7a/libbdkffi.so": "arm32",
	})

	res, err := New(nil).Locate(env)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.StagingRoot, "armeabi-v7a"), res.Dir)
}

func TestLocateWithoutArchive(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	env.ArchivePath = ""

	res, err := New(nil).Locate(env)
	require.Error(t, err)
	assert.Equal(t, NotAttempted, res.Probes[3].Outcome)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not-attempted", NotAttempted.String())
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "found", Found.String())
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestStrategiesOrder(t *testing.T) {
	t.Parallel()

	var names []string
	for _, s := range New(nil).Strategies() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{StepDirect, StepScan, StepABIDir, StepExtract}, names)
}

func TestStrategiesReturnsCopy(t *testing.T) {
	t.Parallel()

	l := New(nil)
	chain := l.Strategies()
	chain[0], chain[3] = chain[3], chain[0]

	assert.Equal(t, StepDirect, l.Strategies()[0].Name)
}

func TestLocateExtractionCopyFails(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	testutil.WriteCorruptAPK(t, env.ArchivePath, "lib/arm64-v8a/libbdkffi.so", "arm64 library payload")

	res, err := New(nil).Locate(env)
	require.Error(t, err)
	assert.Empty(t, res.Dir)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.True(t, errors.Is(err, errors.ErrExtractionIO))
	assert.Equal(t, Errored, res.Probes[3].Outcome)

	_, statErr := os.Stat(filepath.Join(env.StagingRoot, "arm64-v8a", LibraryName))
	assert.True(t, os.IsNotExist(statErr), "partial file must be removed")
}

func TestLocateRejectsDirectoryNamedLikeLibrary(t *testing.T) {
	t.Parallel()

	env := newEnv(t, false)
	testutil.WriteAPK(t, env.ArchivePath, map[string]string{
		"lib/arm64-v8a/libbdkffi.so": "arm64",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(env.StagingRoot, "arm64-v8a", LibraryName), 0755))

	res, err := New(nil).Locate(env)
	require.Error(t, err)
	assert.Empty(t, res.Dir)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.Equal(t, Errored, res.Probes[3].Outcome)
}
