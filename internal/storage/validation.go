package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/lgulliver/blogshelf/pkg/types"
	"github.com/lgulliver/blogshelf/pkg/utils"
)

// MaxAssetSize is the largest accepted image, in bytes
const MaxAssetSize int64 = 5 << 20

// Accepted image content types
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeWebP = "image/webp"
)

// formats maps accepted content types to the decoder name registered with image
var formats = map[string]string{
	ContentTypeJPEG: "jpeg",
	ContentTypePNG:  "png",
	ContentTypeWebP: "webp",
}

// AcceptedContentTypes lists the content types an asset store will write
func AcceptedContentTypes() []string {
	return []string{ContentTypeJPEG, ContentTypePNG, ContentTypeWebP}
}

// ValidateAsset checks content against the asset rules and returns meta with
// a normalised content type and the real size. Type and size are checked
// before the bytes are decoded.
func ValidateAsset(content []byte, meta AssetMeta) (AssetMeta, error) {
	if len(content) == 0 {
		return meta, types.NewValidationError("image", "image required")
	}

	contentType := normalizeContentType(meta.ContentType)
	if contentType != "" {
		if _, ok := formats[contentType]; !ok {
			return meta, fmt.Errorf("%w: %s (accepted: jpeg, png, webp)", types.ErrUnsupportedMediaType, meta.ContentType)
		}
	}

	size := int64(len(content))
	if meta.Size > size {
		size = meta.Size
	}
	if size > MaxAssetSize {
		return meta, fmt.Errorf("%w: %s exceeds %s", types.ErrPayloadTooLarge,
			utils.FormatBytes(size), utils.FormatBytes(MaxAssetSize))
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return meta, fmt.Errorf("%w: image data could not be decoded", types.ErrUnsupportedMediaType)
	}

	detected := ""
	for ct, name := range formats {
		if name == format {
			detected = ct
		}
	}
	if detected == "" {
		return meta, fmt.Errorf("%w: %s", types.ErrUnsupportedMediaType, format)
	}
	if contentType != "" && contentType != detected {
		return meta, fmt.Errorf("%w: declared %s but content is %s", types.ErrUnsupportedMediaType, contentType, detected)
	}

	meta.ContentType = detected
	meta.Size = int64(len(content))
	return meta, nil
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "", "application/octet-stream":
		return ""
	case "image/jpg", "image/pjpeg":
		return ContentTypeJPEG
	}
	return ct
}
