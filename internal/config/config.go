// Package config loads framereview settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Review   ReviewConfig   `yaml:"review"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	BaseURL         string        `yaml:"base_url"         env:"BASE_URL"                env-default:"http://localhost:8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"60s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"120s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	RateLimit       float64       `yaml:"rate_limit"       env:"RATE_LIMIT"              env-default:"10"`
	RateBurst       int           `yaml:"rate_burst"       env:"RATE_BURST"              env-default:"40"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"       env:"DATABASE_URL"       env-required:"true"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS" env-default:"10"`
	MinConns int32  `yaml:"min_conns" env:"DATABASE_MIN_CONNS" env-default:"1"`
}

type StorageConfig struct {
	Endpoint         string        `yaml:"endpoint"          env:"S3_ENDPOINT"           env-default:"http://localhost:3900"`
	PublicEndpoint   string        `yaml:"public_endpoint"   env:"S3_PUBLIC_ENDPOINT"`
	Region           string        `yaml:"region"            env:"S3_REGION"             env-default:"eu-central-1"`
	AccessKey        string        `yaml:"access_key"        env:"S3_ACCESS_KEY"`
	SecretKey        string        `yaml:"secret_key"        env:"S3_SECRET_KEY"`
	MediaBucket      string        `yaml:"media_bucket"      env:"S3_MEDIA_BUCKET"       env-default:"versions"`
	AttachmentBucket string        `yaml:"attachment_bucket" env:"S3_ATTACHMENT_BUCKET"  env-default:"note-attachments"`
	SignedURLTTL     time.Duration `yaml:"signed_url_ttl"    env:"S3_SIGNED_URL_TTL"     env-default:"1h"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"  env:"MAX_UPLOAD_BYTES"      env-default:"52428800"`
	CORSOrigins      string        `yaml:"cors_origins"      env:"S3_CORS_ORIGINS"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

type ReviewConfig struct {
	DefaultFrameRate float64       `yaml:"default_frame_rate" env:"REVIEW_DEFAULT_FPS"       env-default:"24"`
	CommentPageSize  int           `yaml:"comment_page_size"  env:"REVIEW_COMMENT_PAGE_SIZE" env-default:"100"`
	SessionTTL       time.Duration `yaml:"session_ttl"        env:"REVIEW_SESSION_TTL"       env-default:"30m"`
	CanvasWidth      int           `yaml:"canvas_width"       env:"REVIEW_CANVAS_WIDTH"      env-default:"1920"`
	CanvasHeight     int           `yaml:"canvas_height"      env:"REVIEW_CANVAS_HEIGHT"     env-default:"1080"`
	FFmpegPath       string        `yaml:"ffmpeg_path"        env:"FFMPEG_PATH"              env-default:"ffmpeg"`
	ExportTimeout    time.Duration `yaml:"export_timeout"     env:"REVIEW_EXPORT_TIMEOUT"    env-default:"30s"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads the YAML file at path (or CONFIG_PATH) when present, then applies
// environment overrides and defaults. A missing file is only an error when the
// path was given explicitly.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}

	if explicit {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Review.DefaultFrameRate <= 0 {
		errs = append(errs, errors.New("review.default_frame_rate must be positive"))
	}
	if c.Review.CommentPageSize <= 0 {
		errs = append(errs, errors.New("review.comment_page_size must be positive"))
	}
	if c.Review.CanvasWidth <= 0 || c.Review.CanvasHeight <= 0 {
		errs = append(errs, errors.New("review canvas size must be positive"))
	}
	if c.Storage.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("storage.signed_url_ttl must be positive"))
	}
	if c.Storage.MediaBucket == "" || c.Storage.AttachmentBucket == "" {
		errs = append(errs, errors.New("storage buckets are required"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

// CORSOriginList splits the comma separated storage CORS origins.
func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Storage.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
