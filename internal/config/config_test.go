package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("VISIONBENCH_DATA_ROOT", "")
	t.Setenv("AWS_REGION", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataRoot)
	assert.Equal(t, []int{1280, 320, 80, 20, 5}, cfg.Ablations)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Retry.Backoff())
	assert.Equal(t, 1000, cfg.Throughput.SampleCount)
	assert.Equal(t, 10, cfg.Throughput.Workers)
	assert.Equal(t, "HG_ACCESS_TOKEN", cfg.Vendors.HuggingFace.APIKeyEnv)
	assert.Equal(t, "https://www.nyckel.com/connect/token", cfg.Vendors.Nyckel.TokenURL)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	t.Setenv("VISIONBENCH_DATA_ROOT", "")
	t.Setenv("AWS_REGION", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
ablations: [80, 20]
retry:
  backoff_secs: 3
datasets:
  xrays:
    vertex_bucket: gs://argot-xrays
    s3_bucket: argot-chest-xrays
vendors:
  nyckel:
    base_url: http://localhost:9000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int{80, 20}, cfg.Ablations)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Retry.Backoff())
	assert.Equal(t, "http://localhost:9000/connect/token", cfg.Vendors.Nyckel.TokenURL)

	ds, err := cfg.Dataset("xrays")
	require.NoError(t, err)
	assert.Equal(t, "gs://argot-xrays", ds.VertexBucket)
	assert.Equal(t, "azureml://", ds.AzurePrefix)

	_, err = cfg.Dataset("beans")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VISIONBENCH_DATA_ROOT", "/mnt/bench")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/mnt/bench", cfg.DataRoot)
	assert.Equal(t, "eu-west-1", cfg.Vendors.AWS.Region)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("VISIONBENCH_DATA_ROOT", "")
	t.Setenv("AWS_REGION", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Datasets["beans"] = DatasetConfig{VertexBucket: "gs://beans", AzurePrefix: "azureml://"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
