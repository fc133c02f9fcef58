package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetMeta describes an image upload before it is written
type AssetMeta struct {
	ContentType string
	Size        int64
	Filename    string
}

// StoredAsset is the result of a successful write. AssetID is empty for
// backends that can delete by locator alone.
type StoredAsset struct {
	Locator     string
	AssetID     string
	ContentType string
	Size        int64
}

// Ref returns the value Remove expects for this asset
func (a *StoredAsset) Ref() string {
	if a.AssetID != "" {
		return a.AssetID
	}
	return a.Locator
}

// AssetStore defines the interface for image asset storage
type AssetStore interface {
	// Store validates and writes content, returning where it can be fetched from
	Store(ctx context.Context, content []byte, meta AssetMeta) (*StoredAsset, error)

	// Remove deletes the asset identified by an asset id or locator.
	// Removing an asset that is already gone is not an error.
	Remove(ctx context.Context, ref string) error
}

// Resolver is implemented by stores that can check whether an asset exists
type Resolver interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// randomSuffix returns a short random token for remote object names
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// objectName names a remote object <unixMillis>_<suffix>_<name>. The suffix
// keeps same-named uploads within one millisecond on distinct keys.
func objectName(at time.Time, suffix, name string) string {
	return fmt.Sprintf("%d_%s_%s", at.UnixMilli(), suffix, name)
}
