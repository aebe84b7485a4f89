package s3backup

import (
	"errors"
	"fmt"
	"path"
	"time"

	appconfig "github.com/andefred/eldsal/internal/pkg/config"
)

// Config holds the roster archive bucket configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Prefix          string
	Enabled         bool
	// CreateBucket creates a missing bucket on startup (dev only).
	CreateBucket bool
}

// FromArchiveConfig maps the application archive settings.
func FromArchiveConfig(c appconfig.ArchiveConfig, dev bool) (*Config, error) {
	cfg := &Config{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Region:          c.Region,
		BucketName:      c.Bucket,
		EndpointURL:     c.Endpoint,
		Prefix:          c.Prefix,
		Enabled:         c.Enabled,
		CreateBucket:    dev,
	}

	if cfg.Enabled {
		if cfg.BucketName == "" {
			return nil, errors.New("ROSTER_ARCHIVE_BUCKET is required when the roster archive is enabled")
		}
		if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
			return nil, errors.New("ROSTER_ARCHIVE_ACCESS_KEY_ID and ROSTER_ARCHIVE_SECRET_ACCESS_KEY must be set together")
		}
	}

	return cfg, nil
}

// IsEnabled returns true if the archive is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// GetObjectKey generates the object key of a roster export taken at t.
// Format: <prefix>/YYYY/MM/YYYY-MM-DD-<id>.csv
func (c *Config) GetObjectKey(t time.Time, id string) string {
	t = t.UTC()
	name := fmt.Sprintf("%s-%s.csv", t.Format("2006-01-02"), id)
	return path.Join(c.Prefix, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), name)
}
