package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pihla/internal/config"
	"pihla/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	require.NoError(t, os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Disabled", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	require.Len(t, results, len(reqs))

	require.True(t, results[0].Available, "%#v", results[0])
	require.Equal(t, present, results[0].Path)
	require.Empty(t, results[0].Detail)

	require.False(t, results[1].Available)
	require.NotEmpty(t, results[1].Detail)
	require.Equal(t, "clearly-not-present-binary", results[1].Command)

	require.False(t, results[2].Available)
	require.Equal(t, "disabled in config", results[2].Detail)

	require.False(t, Satisfied(results), "missing required binary must fail")
	require.True(t, Satisfied(results[2:]), "optional dependencies must not fail")
}

func TestImageToolsAreOptional(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Jpegtran = "jpegtran"
	cfg.Tools.Pngquant = ""

	reqs := ImageTools(&cfg)
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		require.True(t, req.Optional, "%s should be optional", req.Name)
	}
	require.Equal(t, "jpegtran", reqs[0].Command)
	require.Empty(t, reqs[1].Command)

	t.Setenv("PATH", "")
	require.True(t, Satisfied(CheckBinaries(reqs)), "missing optional tools must still be satisfied")
}

func TestImageToolsResolveOnPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Tools.Jpegtran = "jpegtran"
	cfg.Tools.Pngquant = "pngquant"

	for _, status := range CheckBinaries(ImageTools(cfg)) {
		require.True(t, status.Available, "%s not found on stubbed PATH: %s", status.Name, status.Detail)
		require.Equal(t, status.Command, filepath.Base(status.Path))
	}
}
