package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/pkg/types"
	"github.com/lgulliver/blogshelf/pkg/utils"
)

// LocalStorage implements AssetStore on the local filesystem. Files live in
// basePath and are served by the HTTP layer under publicPrefix.
type LocalStorage struct {
	basePath     string
	publicPrefix string
	now          func() time.Time
	mutex        sync.RWMutex
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath, publicPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Error().Err(err).Str("path", basePath).Msg("failed to create storage directory")
		return nil, fmt.Errorf("%w: failed to create storage directory: %v", types.ErrStoreUnavailable, err)
	}

	log.Info().Str("path", basePath).Str("public_prefix", publicPrefix).Msg("local storage initialized")
	return &LocalStorage{
		basePath:     basePath,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		now:          time.Now,
	}, nil
}

// BasePath returns the directory assets are written to
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// PublicPrefix returns the URL path prefix of every locator
func (ls *LocalStorage) PublicPrefix() string {
	return ls.publicPrefix
}

// Store writes content to <basePath>/<unixMillis>_<name> with an atomic
// rename and returns its public locator
func (ls *LocalStorage) Store(ctx context.Context, content []byte, meta AssetMeta) (*StoredAsset, error) {
	startTime := time.Now()

	meta, err := ValidateAsset(content, meta)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	filename := ls.uniqueFilename(meta.Filename)
	fullPath := filepath.Join(ls.basePath, filename)

	tempPath := fullPath + ".tmp." + fmt.Sprintf("%d", time.Now().UnixNano())
	tempFile, err := os.Create(tempPath)
	if err != nil {
		log.Error().Err(err).Str("temp_path", tempPath).Msg("failed to create temporary file")
		return nil, fmt.Errorf("%w: failed to create temporary file: %v", types.ErrStoreUnavailable, err)
	}

	// Ensure cleanup of temp file on failure
	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to write content to temporary file")
		return nil, fmt.Errorf("%w: failed to write content: %v", types.ErrStoreUnavailable, err)
	}

	if err := tempFile.Sync(); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to sync temporary file")
		return nil, fmt.Errorf("%w: failed to sync temporary file: %v", types.ErrStoreUnavailable, err)
	}

	tempFile.Close()

	if err := os.Rename(tempPath, fullPath); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to move temporary file to final location")
		return nil, fmt.Errorf("%w: failed to move file to final location: %v", types.ErrStoreUnavailable, err)
	}

	asset := &StoredAsset{
		Locator:     path.Join(ls.publicPrefix, filename),
		ContentType: meta.ContentType,
		Size:        meta.Size,
	}

	log.Info().
		Str("locator", asset.Locator).
		Str("content_type", meta.ContentType).
		Int64("bytes_written", meta.Size).
		Str("checksum", utils.ComputeSHA256(content)).
		Dur("duration", time.Since(startTime)).
		Msg("image stored successfully")

	return asset, nil
}

// Remove deletes the file a locator points to. Missing files are ignored.
func (ls *LocalStorage) Remove(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	filename, err := ls.filename(ref)
	if err != nil {
		return err
	}

	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	if err := os.Remove(filepath.Join(ls.basePath, filename)); err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("locator", ref).Msg("image already deleted or does not exist")
			return nil
		}
		log.Error().Err(err).Str("locator", ref).Msg("failed to delete image")
		return fmt.Errorf("%w: failed to delete file: %v", types.ErrStoreUnavailable, err)
	}

	log.Info().Str("locator", ref).Msg("image deleted successfully")
	return nil
}

// Exists checks whether the file a locator points to is present
func (ls *LocalStorage) Exists(ctx context.Context, ref string) (bool, error) {
	filename, err := ls.filename(ref)
	if err != nil {
		return false, err
	}

	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if _, err := os.Stat(filepath.Join(ls.basePath, filename)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to check file existence: %v", types.ErrStoreUnavailable, err)
	}
	return true, nil
}

// filename maps a locator back to a file name inside basePath. Only the base
// name is used so a locator can never escape the storage directory.
func (ls *LocalStorage) filename(ref string) (string, error) {
	name := path.Base(strings.TrimPrefix(ref, ls.publicPrefix))
	if name == "." || name == "/" || name == ".." {
		return "", types.NewValidationError("image", fmt.Sprintf("invalid image locator: %q", ref))
	}
	return name, nil
}

// uniqueFilename must be called with the write lock held
func (ls *LocalStorage) uniqueFilename(original string) string {
	base := fmt.Sprintf("%d_%s", ls.now().UnixMilli(), utils.SanitizeFilename(original))
	candidate := base
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(ls.basePath, candidate)); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, counter, ext)
	}
}
