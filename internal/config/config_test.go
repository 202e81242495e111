package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFlags() *Flags {
	return &Flags{
		TargetPath:     "/tmp/checkout",
		BaseRepository: "https://example.com/app.git",
		TargetBranch:   "staging",
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, ".stagecraft/resolutions", cfg.BankDir)
	assert.Equal(t, ".stagecraft/conflicts", cfg.ReportDir)
	assert.Equal(t, ".stagecraft/run-state.json", cfg.StateFile)
	assert.Equal(t, 200, cfg.FetchLimit)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryBase)
}

func TestResolve_FileOverridesDefaults(t *testing.T) {
	f := validFlags()
	f.ConfigPath = writeConfig(t, `
base_branch = "develop"
mode = "ci"
pr_labels = ["staging", "ready"]
fetch_limit = 50
retry_base_seconds = 5
`)

	cfg, err := f.Resolve()
	require.NoError(t, err)

	assert.Equal(t, "develop", cfg.BaseBranch)
	assert.Equal(t, ModeCI, cfg.Mode)
	assert.Equal(t, []string{"staging", "ready"}, cfg.PRLabels)
	assert.Equal(t, 50, cfg.FetchLimit)
	assert.Equal(t, 5*time.Second, cfg.RetryBase)
}

func TestResolve_FlagsOverrideFile(t *testing.T) {
	f := validFlags()
	f.ConfigPath = writeConfig(t, `
base_branch = "develop"
mode = "ci"
bank_dir = "/srv/bank"
`)
	f.BaseBranch = "release"
	f.Mode = "local"

	cfg, err := f.Resolve()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.BaseBranch)
	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "/srv/bank", cfg.BankDir, "unflagged file values still apply")
}

func TestResolve_ParsesNumberLists(t *testing.T) {
	f := validFlags()
	f.ManualPRs = "101, #102 103"
	f.ExcludePRs = "102"

	cfg, err := f.Resolve()
	require.NoError(t, err)

	assert.Equal(t, []int{101, 102, 103}, cfg.ManualPRs)
	assert.Equal(t, []int{102}, cfg.ExcludePRs)
	assert.Empty(t, cfg.AdditionalPRs)
}

func TestResolve_BadNumberListIsFatal(t *testing.T) {
	f := validFlags()
	f.ManualPRs = "101,abc"

	_, err := f.Resolve()
	assert.ErrorContains(t, err, "--manual-pr-numbers")
}

func TestResolve_ExplicitMissingConfigIsFatal(t *testing.T) {
	f := validFlags()
	f.ConfigPath = filepath.Join(t.TempDir(), "absent.toml")

	_, err := f.Resolve()
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadFile_MissingDefaultIsIgnored(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.LoadFile(filepath.Join(t.TempDir(), "absent.toml"), false))
	assert.Equal(t, "main", cfg.BaseBranch)
}

func TestLoadFile_BadTOML(t *testing.T) {
	cfg := Defaults()
	path := writeConfig(t, "base_branch = [broken")
	assert.ErrorContains(t, cfg.LoadFile(path, true), "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing target path", func(c *Config) { c.TargetPath = "" }, "--target-path is required"},
		{"missing base repository", func(c *Config) { c.BaseRepository = "" }, "--base-repository is required"},
		{"missing base branch", func(c *Config) { c.BaseBranch = "" }, "--base-branch is required"},
		{"missing target branch", func(c *Config) { c.TargetBranch = "" }, "--target-branch is required"},
		{"bad mode", func(c *Config) { c.Mode = "production" }, "invalid mode"},
		{"additional repo without branch", func(c *Config) { c.AdditionalRepository = "https://example.com/x.git" },
			"--additional-branch is required"},
		{"valid", func(c *Config) {}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.TargetPath = "/tmp/checkout"
			cfg.BaseRepository = "https://example.com/app.git"
			cfg.TargetBranch = "staging"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
