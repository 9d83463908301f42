package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path"
	"strings"

	"yatube/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Thumbnail geometry used by the feed cards.
const (
	ThumbWidth   = 960
	ThumbHeight  = 339
	thumbQuality = 75
	imagePrefix  = "posts/"
	thumbSuffix  = "_thumb.webp"

	// MaxPixels caps declared image dimensions; decoding allocates per pixel.
	MaxPixels = 40_000_000
)

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// Images validates uploads, stores the original plus a cropped thumbnail, and resolves URLs.
type Images struct {
	store    ObjectStore
	maxBytes int64
}

// NewImages returns an Images over store accepting files up to maxMB megabytes.
func NewImages(store ObjectStore, maxMB int) *Images {
	return &Images{store: store, maxBytes: int64(maxMB) << 20}
}

// Validate checks size, that data decodes as jpeg, png, gif or webp, and that its declared
// dimensions stay under MaxPixels. It returns the format.
func (i *Images) Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", imageError("The submitted file is empty.")
	}
	if int64(len(data)) > i.maxBytes {
		return "", imageError(fmt.Sprintf("File too large (max %dMB).", i.maxBytes>>20))
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", imageError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", imageError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if _, ok := extensions[format]; !ok {
		return "", imageError(fmt.Sprintf("Unsupported image format %q.", format))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", imageError(fmt.Sprintf("Image dimensions %dx%d are too large (max %d megapixels).",
			cfg.Width, cfg.Height, MaxPixels/1_000_000))
	}
	return format, nil
}

// Save validates data and stores it under a fresh key. The returned key is what a post keeps.
func (i *Images) Save(ctx context.Context, data []byte) (string, error) {
	format, err := i.Validate(data)
	if err != nil {
		return "", err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", imageError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	thumb, err := encodeThumbnail(src)
	if err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	key := imagePrefix + uuid.NewString() + extensions[format]
	if err := i.store.Save(ctx, key, data, "image/"+format); err != nil {
		return "", err
	}
	if err := i.store.Save(ctx, ThumbKey(key), thumb, "image/webp"); err != nil {
		return "", err
	}
	return key, nil
}

// URL returns the public URL of the original image, or "" for an empty key.
func (i *Images) URL(key string) string {
	if key == "" {
		return ""
	}
	return i.store.URL(key)
}

// ThumbURL returns the public URL of the key's thumbnail, or "" for an empty key.
func (i *Images) ThumbURL(key string) string {
	if key == "" {
		return ""
	}
	return i.store.URL(ThumbKey(key))
}

// ThumbKey derives the thumbnail key from an original key.
func ThumbKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + thumbSuffix
}

func imageError(msg string) error {
	return models.NewFieldValidationError(map[string]string{"image": msg})
}

// encodeThumbnail crops src to the thumbnail aspect around its center, scales it to
// ThumbWidth x ThumbHeight (upscaling small images) and encodes webp.
func encodeThumbnail(src image.Image) ([]byte, error) {
	cropped := cropCenter(src, float64(ThumbWidth)/float64(ThumbHeight))
	dst := image.NewRGBA(image.Rect(0, 0, ThumbWidth, ThumbHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Quality: thumbQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cropCenter(src image.Image, ratio float64) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return src
	}

	cropW, cropH := w, h
	if float64(w)/float64(h) > ratio {
		cropW = max(1, int(float64(h)*ratio))
	} else {
		cropH = max(1, int(float64(w)/ratio))
	}
	x := b.Min.X + (w-cropW)/2
	y := b.Min.Y + (h-cropH)/2

	dst := image.NewRGBA(image.Rect(0, 0, cropW, cropH))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}
