// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package imageopt

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is an output image format.
type Format string

const (
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

// Encoder writes img to dst in the given format.
type Encoder interface {
	Encode(ctx context.Context, img image.Image, dst string, format Format, quality int) error
}

// CommandEncoder encodes with the cwebp and avifenc command line tools via a
// lossless PNG intermediate.
type CommandEncoder struct {
	cwebpPath   string
	avifencPath string
	run         func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCommandEncoder creates an encoder that shells out to the given binaries.
func NewCommandEncoder(cwebpPath, avifencPath string) *CommandEncoder {
	if cwebpPath == "" {
		cwebpPath = "cwebp"
	}
	if avifencPath == "" {
		avifencPath = "avifenc"
	}
	return &CommandEncoder{
		cwebpPath:   cwebpPath,
		avifencPath: avifencPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // G204: binary paths come from configuration
		},
	}
}

// Encode implements Encoder.
func (e *CommandEncoder) Encode(ctx context.Context, img image.Image, dst string, format Format, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".encode-*.png")
	if err != nil {
		return fmt.Errorf("create intermediate: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // Best effort cleanup of intermediate

	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("write intermediate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close intermediate: %w", err)
	}

	q := strconv.Itoa(quality)
	var name string
	var args []string
	switch format {
	case FormatWebP:
		name, args = e.cwebpPath, []string{"-quiet", "-q", q, tmpName, "-o", dst}
	case FormatAVIF:
		name, args = e.avifencPath, []string{"-q", q, tmpName, dst}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if out, err := e.run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("%s produced no output: %w", filepath.Base(name), err)
	}
	return nil
}
