package storage

import (
	"fmt"

	"github.com/lgulliver/blogshelf/pkg/config"
)

// StorageFactory creates storage instances based on configuration
type StorageFactory struct {
	config *config.StorageConfig
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(config *config.StorageConfig) *StorageFactory {
	return &StorageFactory{config: config}
}

// CreateStorage creates a storage instance based on the configured type.
// A misconfigured remote backend is an error; it never falls back to local.
func (sf *StorageFactory) CreateStorage() (AssetStore, error) {
	var (
		store AssetStore
		err   error
	)

	switch sf.config.Type {
	case config.StorageLocal:
		store, err = NewLocalStorage(sf.config.LocalPath, sf.config.PublicPrefix)
	case config.StorageCloudinary:
		store, err = NewCloudinaryStorage(&sf.config.Cloudinary)
	case config.StorageS3:
		store, err = NewS3Storage(&sf.config.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", sf.config.Type)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
