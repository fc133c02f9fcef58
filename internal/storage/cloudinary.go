package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/pkg/config"
	"github.com/lgulliver/blogshelf/pkg/types"
	"github.com/lgulliver/blogshelf/pkg/utils"
)

const destroyNotFound = "not found"

// mediaAPI is the subset of the Cloudinary upload API the store uses
type mediaAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStorage implements AssetStore on the Cloudinary media host.
// Locators are secure delivery URLs; assets are deleted by public id.
type CloudinaryStorage struct {
	api    mediaAPI
	folder string
	now    func() time.Time
	newID  func() string
}

// NewCloudinaryStorage creates a Cloudinary-backed store. Missing credentials
// are a configuration error, never a fallback to another backend.
func NewCloudinaryStorage(cfg *config.CloudinaryConfig) (*CloudinaryStorage, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: cloudinary environment variables are not configured", types.ErrStoreUnavailable)
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cloudinary client: %v", types.ErrStoreUnavailable, err)
	}
	cld.Config.URL.Secure = true

	log.Info().Str("cloud_name", cfg.CloudName).Str("folder", cfg.UploadFolder).Msg("cloudinary storage initialized")
	return newCloudinaryStorage(&cld.Upload, cfg.UploadFolder), nil
}

func newCloudinaryStorage(client mediaAPI, folder string) *CloudinaryStorage {
	if folder == "" {
		folder = "blog-app"
	}
	return &CloudinaryStorage{api: client, folder: folder, now: time.Now, newID: randomSuffix}
}

// Store uploads content into the configured folder
func (cs *CloudinaryStorage) Store(ctx context.Context, content []byte, meta AssetMeta) (*StoredAsset, error) {
	startTime := time.Now()

	meta, err := ValidateAsset(content, meta)
	if err != nil {
		return nil, err
	}

	name := utils.SanitizeFilename(meta.Filename)
	result, err := cs.api.Upload(ctx, bytes.NewReader(content), uploader.UploadParams{
		Folder:         cs.folder,
		ResourceType:   "image",
		PublicID:       objectName(cs.now(), cs.newID(), strings.TrimSuffix(name, filepath.Ext(name))),
		Overwrite:      api.Bool(false),
		UniqueFilename: api.Bool(false),
	})
	if err != nil {
		log.Error().Err(err).Str("folder", cs.folder).Msg("cloudinary upload failed")
		return nil, fmt.Errorf("%w: upload failed: %v", types.ErrStoreUnavailable, err)
	}
	if result == nil || result.Error.Message != "" {
		msg := "empty response"
		if result != nil {
			msg = result.Error.Message
		}
		log.Error().Str("folder", cs.folder).Str("error", msg).Msg("cloudinary rejected upload")
		return nil, fmt.Errorf("%w: upload rejected: %s", types.ErrStoreUnavailable, msg)
	}

	asset := &StoredAsset{
		Locator:     result.SecureURL,
		AssetID:     result.PublicID,
		ContentType: meta.ContentType,
		Size:        meta.Size,
	}

	log.Info().
		Str("locator", asset.Locator).
		Str("asset_id", asset.AssetID).
		Int64("bytes_written", meta.Size).
		Dur("duration", time.Since(startTime)).
		Msg("image uploaded to cloudinary")

	return asset, nil
}

// Remove destroys an asset by public id. A "not found" result is ignored.
func (cs *CloudinaryStorage) Remove(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	result, err := cs.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     ref,
		ResourceType: "image",
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		log.Error().Err(err).Str("asset_id", ref).Msg("cloudinary destroy failed")
		return fmt.Errorf("%w: destroy failed: %v", types.ErrStoreUnavailable, err)
	}
	if result == nil {
		return fmt.Errorf("%w: destroy returned no result", types.ErrStoreUnavailable)
	}
	if result.Error.Message != "" {
		log.Error().Str("asset_id", ref).Str("error", result.Error.Message).Msg("cloudinary rejected destroy")
		return fmt.Errorf("%w: destroy rejected: %s", types.ErrStoreUnavailable, result.Error.Message)
	}

	switch result.Result {
	case "ok":
		log.Info().Str("asset_id", ref).Msg("image deleted from cloudinary")
	case destroyNotFound:
		log.Debug().Str("asset_id", ref).Msg("image already deleted or does not exist")
	default:
		return fmt.Errorf("%w: unexpected destroy result %q", types.ErrStoreUnavailable, result.Result)
	}
	return nil
}
