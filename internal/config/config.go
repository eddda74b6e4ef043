package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Quality     QualityConfig     `yaml:"quality"`
	Liveness    LivenessConfig    `yaml:"liveness"`
	Sync        SyncConfig        `yaml:"sync"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RecognitionConfig holds matching and resolution parameters. The matcher
// takes these as explicit arguments per call, never as ambient state.
type RecognitionConfig struct {
	ModelsDir               string        `yaml:"models_dir"`
	Tolerance               float64       `yaml:"tolerance"`
	EncodingDim             int           `yaml:"encoding_dim"`
	DetectionThreshold      float64       `yaml:"detection_threshold"`
	MinGap                  time.Duration `yaml:"min_gap"`
	MaxEncodingsPerEmployee int           `yaml:"max_encodings_per_employee"`
	WorkerCount             int           `yaml:"worker_count"`
}

// QualityConfig are the hard gates applied to enrollment and capture images.
type QualityConfig struct {
	MinSize       int     `yaml:"min_size"`
	MaxSize       int     `yaml:"max_size"`
	MinBrightness float64 `yaml:"min_brightness"`
	MaxBrightness float64 `yaml:"max_brightness"`
	MinBlurScore  float64 `yaml:"min_blur_score"`
	MinFaceRatio  float64 `yaml:"min_face_ratio"`
}

// LivenessConfig controls the heuristic spoof filter. It is a scoring
// heuristic, not a security control, and is disabled by default.
type LivenessConfig struct {
	Enabled  bool    `yaml:"enabled"`
	MinScore float64 `yaml:"min_score"`
}

// SyncConfig drives the background reconciliation service: how often to
// scan for cross-kiosk conflicts and how long raw captures are retained.
type SyncConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Retention time.Duration `yaml:"retention"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Recognition.Tolerance == 0 {
		cfg.Recognition.Tolerance = 0.4
	}
	if cfg.Recognition.EncodingDim == 0 {
		cfg.Recognition.EncodingDim = 128
	}
	if cfg.Recognition.DetectionThreshold == 0 {
		cfg.Recognition.DetectionThreshold = 0.5
	}
	if cfg.Recognition.MinGap == 0 {
		cfg.Recognition.MinGap = 5 * time.Minute
	}
	if cfg.Recognition.MaxEncodingsPerEmployee == 0 {
		cfg.Recognition.MaxEncodingsPerEmployee = 5
	}
	if cfg.Recognition.WorkerCount == 0 {
		cfg.Recognition.WorkerCount = 4
	}
	if cfg.Quality.MinSize == 0 {
		cfg.Quality.MinSize = 200
	}
	if cfg.Quality.MaxSize == 0 {
		cfg.Quality.MaxSize = 2000
	}
	if cfg.Quality.MinBrightness == 0 {
		cfg.Quality.MinBrightness = 50
	}
	if cfg.Quality.MaxBrightness == 0 {
		cfg.Quality.MaxBrightness = 200
	}
	if cfg.Quality.MinBlurScore == 0 {
		cfg.Quality.MinBlurScore = 100
	}
	if cfg.Quality.MinFaceRatio == 0 {
		cfg.Quality.MinFaceRatio = 0.1
	}
	if cfg.Liveness.MinScore == 0 {
		cfg.Liveness.MinScore = 60
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
	if cfg.Sync.Retention == 0 {
		cfg.Sync.Retention = 30 * 24 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATTEND_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ATTEND_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("ATTEND_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ATTEND_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ATTEND_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ATTEND_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ATTEND_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ATTEND_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("ATTEND_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("ATTEND_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("ATTEND_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("ATTEND_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("ATTEND_MODELS_DIR"); v != "" {
		cfg.Recognition.ModelsDir = v
	}
	if v := os.Getenv("ATTEND_TOLERANCE"); v != "" {
		if tol, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Recognition.Tolerance = tol
		}
	}
	if v := os.Getenv("ATTEND_MIN_GAP"); v != "" {
		if gap, err := time.ParseDuration(v); err == nil {
			cfg.Recognition.MinGap = gap
		}
	}
	if v := os.Getenv("ATTEND_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recognition.WorkerCount = n
		}
	}
}
