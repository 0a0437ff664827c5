package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"visionbench/internal/domain"
)

// DatasetConfig holds the per-dataset vendor prefixes used in manifests and uploads.
type DatasetConfig struct {
	VertexBucket   string `yaml:"vertex_bucket"`
	AzurePrefix    string `yaml:"azure_prefix"`
	S3Bucket       string `yaml:"s3_bucket"`
	AzureContainer string `yaml:"azure_container"`
}

// RetryConfig controls the invocation retry policy.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BackoffSecs int `yaml:"backoff_secs"`
}

// Backoff returns the configured sleep between attempts.
func (r RetryConfig) Backoff() time.Duration { return time.Duration(r.BackoffSecs) * time.Second }

// ThroughputConfig sizes the disposable parallel benchmark.
type ThroughputConfig struct {
	SampleCount int `yaml:"sample_count"`
	Workers     int `yaml:"workers"`
}

// HuggingFaceConfig configures the hosted inference API client.
type HuggingFaceConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// NyckelConfig configures the no-code classifier client.
type NyckelConfig struct {
	BaseURL           string  `yaml:"base_url"`
	TokenURL          string  `yaml:"token_url"`
	ClientIDEnv       string  `yaml:"client_id_env"`
	ClientSecretEnv   string  `yaml:"client_secret_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	UploadWorkers     int     `yaml:"upload_workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// AWSConfig configures S3 uploads and Rekognition Custom Labels.
type AWSConfig struct {
	Region string `yaml:"region"`
}

// VertexConfig configures Vertex AI prediction and GCS uploads.
type VertexConfig struct {
	Project         string `yaml:"project"`
	Region          string `yaml:"region"`
	CredentialsFile string `yaml:"credentials_file"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
}

// AzureConfig configures blob uploads and online endpoint scoring.
type AzureConfig struct {
	StorageAccountEnv string `yaml:"storage_account_env"`
	StorageKeyEnv     string `yaml:"storage_key_env"`
	EndpointKeyEnv    string `yaml:"endpoint_key_env"`
	TimeoutSecs       int    `yaml:"timeout_secs"`
}

// VendorsConfig groups every vendor's settings.
type VendorsConfig struct {
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Nyckel      NyckelConfig      `yaml:"nyckel"`
	AWS         AWSConfig         `yaml:"aws"`
	Vertex      VertexConfig      `yaml:"vertex"`
	Azure       AzureConfig       `yaml:"azure"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	DataRoot   string                   `yaml:"data_root"`
	Seed       uint64                   `yaml:"seed"`
	Ablations  []int                    `yaml:"ablations"`
	Retry      RetryConfig              `yaml:"retry"`
	Throughput ThroughputConfig         `yaml:"throughput"`
	Datasets   map[string]DatasetConfig `yaml:"datasets"`
	Vendors    VendorsConfig            `yaml:"vendors"`
}

// DefaultAblations is the descending sequence of per-class sample counts.
var DefaultAblations = []int{1280, 320, 80, 20, 5}

// Dataset returns the prefix table for name, or an error if it is not configured.
func (c *AppConfig) Dataset(name string) (DatasetConfig, error) {
	ds, ok := c.Datasets[name]
	if !ok {
		return DatasetConfig{}, domain.Configf("dataset %q is not configured", name)
	}
	return ds, nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	cfg.applyEnvOverrides()
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/visionbench/config.yaml.
// If neither exists, it writes defaults to ~/.config/visionbench/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	cfg.applyEnvOverrides()
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "visionbench", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{Datasets: map[string]DatasetConfig{}}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.DataRoot == "" {
		cfg.DataRoot = "data"
	}
	if len(cfg.Ablations) == 0 {
		cfg.Ablations = append([]int(nil), DefaultAblations...)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 2
	}
	if cfg.Retry.BackoffSecs == 0 {
		cfg.Retry.BackoffSecs = 10
	}
	if cfg.Throughput.SampleCount == 0 {
		cfg.Throughput.SampleCount = 1000
	}
	if cfg.Throughput.Workers == 0 {
		cfg.Throughput.Workers = 10
	}
	if cfg.Datasets == nil {
		cfg.Datasets = map[string]DatasetConfig{}
	}
	for name, ds := range cfg.Datasets {
		if ds.AzurePrefix == "" {
			ds.AzurePrefix = "azureml://"
		}
		cfg.Datasets[name] = ds
	}

	hg := &cfg.Vendors.HuggingFace
	if hg.BaseURL == "" {
		hg.BaseURL = "https://api-inference.huggingface.co"
	}
	if hg.APIKeyEnv == "" {
		hg.APIKeyEnv = "HG_ACCESS_TOKEN"
	}
	if hg.TimeoutSecs == 0 {
		hg.TimeoutSecs = 60
	}

	ny := &cfg.Vendors.Nyckel
	if ny.BaseURL == "" {
		ny.BaseURL = "https://www.nyckel.com"
	}
	if ny.TokenURL == "" {
		ny.TokenURL = ny.BaseURL + "/connect/token"
	}
	if ny.ClientIDEnv == "" {
		ny.ClientIDEnv = "NYCKEL_CLIENT_ID"
	}
	if ny.ClientSecretEnv == "" {
		ny.ClientSecretEnv = "NYCKEL_CLIENT_SECRET"
	}
	if ny.TimeoutSecs == 0 {
		ny.TimeoutSecs = 30
	}
	if ny.UploadWorkers == 0 {
		ny.UploadWorkers = 10
	}

	if cfg.Vendors.AWS.Region == "" {
		cfg.Vendors.AWS.Region = "us-east-1"
	}

	vx := &cfg.Vendors.Vertex
	if vx.Region == "" {
		vx.Region = "us-central1"
	}
	if vx.CredentialsFile == "" {
		vx.CredentialsFile = "gcreds.json"
	}
	if vx.TimeoutSecs == 0 {
		vx.TimeoutSecs = 30
	}

	az := &cfg.Vendors.Azure
	if az.StorageAccountEnv == "" {
		az.StorageAccountEnv = "AZURE_STORAGE_ACCOUNT"
	}
	if az.StorageKeyEnv == "" {
		az.StorageKeyEnv = "AZURE_STORAGE_KEY"
	}
	if az.EndpointKeyEnv == "" {
		az.EndpointKeyEnv = "AZURE_ENDPOINT_KEY"
	}
	if az.TimeoutSecs == 0 {
		az.TimeoutSecs = 30
	}
}

// applyEnvOverrides lets the environment relocate the data directory.
func (c *AppConfig) applyEnvOverrides() {
	if root := os.Getenv("VISIONBENCH_DATA_ROOT"); root != "" {
		c.DataRoot = root
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		c.Vendors.AWS.Region = region
	}
}
