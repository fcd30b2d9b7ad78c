package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "./config.yaml"

type Config struct {
	ListenAddr     string      `yaml:"listen_addr"`
	DataDir        string      `yaml:"data_dir"`
	Backend        string      `yaml:"backend"`
	MetaDSN        string      `yaml:"meta_dsn"`
	MaxUploadBytes int64       `yaml:"max_upload_bytes"`
	LogLevel       string      `yaml:"log_level"`
	LogFile        string      `yaml:"log_file"`
	LogFormat      string      `yaml:"log_format"`
	GC             GCConfig    `yaml:"gc"`
	MinIO          MinIOConfig `yaml:"minio"`
}

type GCConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Interval time.Duration `yaml:"interval"`
}

type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// Default возвращает конфигурацию, с которой сервис поднимается без файла.
func Default() *Config {
	return &Config{
		ListenAddr:     ":8000",
		DataDir:        "./storage",
		Backend:        "disk",
		MetaDSN:        "memory://",
		MaxUploadBytes: 100 << 20,
		LogLevel:       "info",
		LogFormat:      "json",
		GC: GCConfig{
			TTL:      24 * time.Hour,
			Interval: 30 * time.Minute,
		},
	}
}

// Load читает YAML из CONFIG_PATH (или ./config.yaml), применяет ENV-переопределения.
// Отсутствие файла по умолчанию не ошибка; явно указанный файл обязан существовать.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		c, err := LoadFile(defaultConfigPath)
		if errors.Is(err, fs.ErrNotExist) {
			c = Default()
			if err = applyEnv(c); err == nil {
				err = c.Validate()
			}
		}
		return c, err
	}

	return LoadFile(path)
}

// LoadFile читает конкретный файл поверх значений по умолчанию.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := applyEnv(c); err != nil {
		return nil, err
	}

	return c, c.Validate()
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	switch c.Backend {
	case "disk":
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("data_dir is required for disk backend")
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("minio.endpoint and minio.bucket are required for minio backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be > 0")
	}

	return nil
}

// applyEnv ENV override
func applyEnv(c *Config) error {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.Backend, "STORAGE_BACKEND")
	setString(&c.MetaDSN, "META_DSN")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFile, "LOG_FILE")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&c.MinIO.AccessKeyID, "MINIO_ACCESS_KEY_ID")
	setString(&c.MinIO.SecretAccessKey, "MINIO_SECRET_ACCESS_KEY")
	setString(&c.MinIO.Bucket, "MINIO_BUCKET_NAME")

	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.MinIO.UseSSL = v == "true"
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	if err := setDuration(&c.GC.TTL, "GC_TTL"); err != nil {
		return err
	}
	if err := setDuration(&c.GC.Interval, "GC_INTERVAL"); err != nil {
		return err
	}

	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d

	return nil
}

const redactedMark = "xxxxx"

// View конфигурация в виде для /admin/config: секреты скрыты, длительности строками.
type View struct {
	ListenAddr     string    `json:"listen_addr"`
	DataDir        string    `json:"data_dir"`
	Backend        string    `json:"backend"`
	MetaDSN        string    `json:"meta_dsn"`
	MaxUploadBytes int64     `json:"max_upload_bytes"`
	LogLevel       string    `json:"log_level"`
	LogFile        string    `json:"log_file"`
	LogFormat      string    `json:"log_format"`
	GC             GCView    `json:"gc"`
	MinIO          MinIOView `json:"minio"`
}

type GCView struct {
	TTL      string `json:"ttl"`
	Interval string `json:"interval"`
}

type MinIOView struct {
	Endpoint    string `json:"endpoint"`
	AccessKeyID string `json:"access_key_id"`
	Bucket      string `json:"bucket"`
	UseSSL      bool   `json:"use_ssl"`
}

// Redacted возвращает представление без паролей и ключей.
func (c *Config) Redacted() View {
	return View{
		ListenAddr:     c.ListenAddr,
		DataDir:        c.DataDir,
		Backend:        c.Backend,
		MetaDSN:        RedactDSN(c.MetaDSN),
		MaxUploadBytes: c.MaxUploadBytes,
		LogLevel:       c.LogLevel,
		LogFile:        c.LogFile,
		LogFormat:      c.LogFormat,
		GC: GCView{
			TTL:      c.GC.TTL.String(),
			Interval: c.GC.Interval.String(),
		},
		MinIO: MinIOView{
			Endpoint:    c.MinIO.Endpoint,
			AccessKeyID: c.MinIO.AccessKeyID,
			Bucket:      c.MinIO.Bucket,
			UseSSL:      c.MinIO.UseSSL,
		},
	}
}

// RedactDSN прячет пароль в userinfo и в параметре password.
// Неразбираемый DSN целиком заменяется меткой.
func RedactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return redactedMark
	}

	_, hasPass := u.User.Password()
	q := u.Query()
	if !hasPass && !q.Has("password") {
		return dsn
	}
	if q.Has("password") {
		q.Set("password", redactedMark)
		u.RawQuery = q.Encode()
	}

	return u.Redacted()
}
