// Package storage keeps donation images in object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"doemais/config"
	"doemais/utils"
)

// ImageStore uploads images and returns a URL clients can load.
type ImageStore interface {
	Upload(ctx context.Context, r io.Reader, folder, name, contentType string) (string, error)
	// Delete removes an object previously returned by Upload, given its URL.
	Delete(ctx context.Context, url string) error
}

// ErrDisabled is returned when no storage driver is configured.
var ErrDisabled = utils.BusinessRuleError("image uploads are not enabled")

// Disabled rejects every upload.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error {
	return ErrDisabled
}

// NewFromConfig selects the driver named by STORAGE_DRIVER.
func NewFromConfig(ctx context.Context) (ImageStore, error) {
	cfg := config.AppConfig
	switch strings.ToLower(cfg.StorageDriver) {
	case "cloudinary":
		return NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "", "none":
		return Disabled{}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// objectKey joins folder and name into a slash-separated key.
func objectKey(folder, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = utils.NewID()
	} else {
		name = utils.NewID() + "-" + name
	}
	return path.Join(folder, name)
}
