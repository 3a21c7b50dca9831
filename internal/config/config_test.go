package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultConfig_PassesValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func Test_FillDefaults_LeavesSetFieldsAlone(t *testing.T) {
	cfg := Config{GCHighWaterMark: 42}.FillDefaults()
	assert.Equal(t, 42, cfg.GCHighWaterMark)
	assert.Equal(t, DefaultConfig().ConditionStepLimit, cfg.ConditionStepLimit)
	assert.Equal(t, DefaultConfig().Engine, cfg.Engine)
}

func Test_Validate_RejectsUnknownEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = "bogus"
	require.Error(t, cfg.Validate())
}

func Test_Validate_RejectsNonPositiveLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConditionStepLimit = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.GCHighWaterMark = -1
	require.Error(t, cfg.Validate())
}

func Test_Load_ParsesTOMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbane.toml")
	contents := "engine = \"innermost\"\ngc_high_water_mark = 500\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EngineInnermost, cfg.Engine)
	assert.Equal(t, 500, cfg.GCHighWaterMark)
	assert.Equal(t, DefaultConfig().ConditionStepLimit, cfg.ConditionStepLimit)
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
}
