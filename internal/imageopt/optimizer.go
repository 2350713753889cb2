// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
optimizer.go - Image Derivatives

For an uploaded image at <dir>/<name>.<ext> the optimizer writes:

	<dir>/optimized/<name>.webp        web rendition
	<dir>/optimized/<name>.avif        high-compression rendition
	<dir>/optimized/<name>_thumb.webp  thumbnail, fitted into ThumbnailSize²

The source is decoded once (EXIF orientation applied). Each derivative is
produced independently: one failing does not prevent the others, and the
successes are kept on disk. Derivatives are not tracked in the record store;
Cleanup removes them by name.
*/

//nolint:staticcheck // File documentation, not package doc
package imageopt

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register the WebP decoder with image.Decode

	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/metrics"
)

// OptimizedDirName is the sibling directory that holds derivatives.
const OptimizedDirName = "optimized"

// Derivative kinds, also used as metric labels.
const (
	KindWebP      = "webp"
	KindAVIF      = "avif"
	KindThumbnail = "thumbnail"
)

// optimizableTypes lists the MIME types the optimizer can decode.
var optimizableTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsOptimizable reports whether derivatives can be generated for mimeType.
func IsOptimizable(mimeType string) bool {
	mt, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), ";")
	return optimizableTypes[strings.TrimSpace(mt)]
}

// Config holds image optimization settings
type Config struct {
	Enabled       bool
	CwebpPath     string
	AvifencPath   string
	WebPQuality   int
	AVIFQuality   int
	ThumbnailSize int
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		CwebpPath:     "cwebp",
		AvifencPath:   "avifenc",
		WebPQuality:   80,
		AVIFQuality:   50,
		ThumbnailSize: 300,
	}
}

// Paths are the derivative locations for one source file.
type Paths struct {
	Dir       string
	WebP      string
	AVIF      string
	Thumbnail string
}

// DerivativePaths returns where the derivatives of src live.
func DerivativePaths(src string) Paths {
	dir := filepath.Join(filepath.Dir(src), OptimizedDirName)
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return Paths{
		Dir:       dir,
		WebP:      filepath.Join(dir, base+".webp"),
		AVIF:      filepath.Join(dir, base+".avif"),
		Thumbnail: filepath.Join(dir, base+"_thumb.webp"),
	}
}

// Set is an OptimizedImageSet: the derivatives that were written.
// Empty fields were not produced.
type Set struct {
	WebP      string `json:"webp,omitempty"`
	AVIF      string `json:"avif,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Optimizer generates and removes image derivatives.
type Optimizer struct {
	cfg Config
	enc Encoder
}

// New creates an Optimizer. A nil encoder uses a CommandEncoder built from cfg.
func New(cfg Config, enc Encoder) *Optimizer {
	if cfg.ThumbnailSize <= 0 {
		cfg.ThumbnailSize = DefaultConfig().ThumbnailSize
	}
	if enc == nil {
		enc = NewCommandEncoder(cfg.CwebpPath, cfg.AvifencPath)
	}
	return &Optimizer{cfg: cfg, enc: enc}
}

// Enabled reports whether derivative generation is switched on.
func (o *Optimizer) Enabled() bool {
	return o.cfg.Enabled
}

// Optimize decodes src and writes its derivatives. The returned Set lists
// what was written even when err is non-nil; err joins every derivative
// failure.
func (o *Optimizer) Optimize(ctx context.Context, src string) (*Set, error) {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return &Set{}, fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}

	paths := DerivativePaths(src)
	if err := os.MkdirAll(paths.Dir, 0o750); err != nil {
		return &Set{}, fmt.Errorf("create %s directory: %w", OptimizedDirName, err)
	}

	log := logging.Ctx(ctx).With().Str("source", src).Logger()
	thumb := imaging.Fit(img, o.cfg.ThumbnailSize, o.cfg.ThumbnailSize, imaging.Lanczos)

	set := &Set{}
	jobs := []struct {
		kind    string
		img     image.Image
		dst     string
		format  Format
		quality int
		written *string
	}{
		{KindWebP, img, paths.WebP, FormatWebP, o.cfg.WebPQuality, &set.WebP},
		{KindAVIF, img, paths.AVIF, FormatAVIF, o.cfg.AVIFQuality, &set.AVIF},
		{KindThumbnail, thumb, paths.Thumbnail, FormatWebP, o.cfg.WebPQuality, &set.Thumbnail},
	}

	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := o.enc.Encode(ctx, job.img, job.dst, job.format, job.quality)
		metrics.RecordDerivative(job.kind, err)
		if err != nil {
			log.Warn().Err(err).Str("kind", job.kind).Msg("Failed to generate image derivative")
			os.Remove(job.dst) //nolint:errcheck // Best effort cleanup of partial output
			errs = append(errs, fmt.Errorf("%s: %w", job.kind, err))
			continue
		}
		*job.written = job.dst
	}

	if len(errs) == 0 {
		b := img.Bounds()
		log.Debug().Int("width", b.Dx()).Int("height", b.Dy()).Msg("Image derivatives generated")
	}
	return set, errors.Join(errs...)
}

// Cleanup removes every derivative of src. Missing files are ignored and the
// optimized directory is removed once empty.
func (o *Optimizer) Cleanup(src string) error {
	paths := DerivativePaths(src)

	var errs []error
	for _, p := range []string{paths.WebP, paths.AVIF, paths.Thumbnail} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}

	os.Remove(paths.Dir) //nolint:errcheck // Only succeeds once the directory is empty

	return errors.Join(errs...)
}
