package config

// This file defines the object storage configuration. Photo bytes are kept in
// an S3-compatible store (MinIO, AWS S3, ...); only metadata lives in MySQL.

import (
	"os"
	"strings"
)

// StorageConfig holds connection settings for the S3-compatible object store.
// Endpoint is host:port without a scheme; UseSSL selects https. Bucket is
// created at startup when it does not exist yet.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// LoadStorageConfig reads S3_* environment variables. Endpoint, access key,
// secret key and bucket are required; the loader reuses must() so a missing
// value halts startup the same way the core config does.
func LoadStorageConfig() StorageConfig {
	return StorageConfig{
		Endpoint:  must("S3_ENDPOINT"),
		AccessKey: must("S3_ACCESS_KEY"),
		SecretKey: must("S3_SECRET_KEY"),
		Bucket:    must("S3_BUCKET"),
		Region:    os.Getenv("S3_REGION"),
		UseSSL:    strings.EqualFold(os.Getenv("S3_USE_SSL"), "true") || os.Getenv("S3_USE_SSL") == "1",
	}
}
