// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
archive.go - Archive Writer and Reader

Each uploaded file is archived as a single stream, never buffered whole:

	source file -> [gzip|zstd encoder] -> files/<filename>[.gz|.zst]

and restored through the matching decoder:

	files/<filename>.gz -> gzip decoder -> <upload dir>/<bucket>/<filename>

The suffix names the codec, so a set can be restored without consulting the
configuration that produced it. Writers are closed in reverse order; a failed
write removes the partial output.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression algorithms
const (
	AlgorithmGzip = "gzip"
	AlgorithmZstd = "zstd"
)

// codec is one compression format usable for archived files.
type codec struct {
	name      string
	suffix    string
	newWriter func(w io.Writer, level int) (io.WriteCloser, error)
	newReader func(r io.Reader) (io.ReadCloser, error)
}

var (
	gzipCodec = &codec{
		name:   AlgorithmGzip,
		suffix: ".gz",
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, level)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	}

	zstdCodec = &codec{
		name:   AlgorithmZstd,
		suffix: ".zst",
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	}

	// knownCodecs is the lookup order used when restoring.
	knownCodecs = []*codec{gzipCodec, zstdCodec}
)

// codecFor returns the codec for a configured algorithm name.
func codecFor(algorithm string) (*codec, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmGzip:
		return gzipCodec, nil
	case AlgorithmZstd:
		return zstdCodec, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// archiveWriters holds the writers of one archived file
type archiveWriters struct {
	dest    io.Writer
	closers []io.Closer
}

// Close closes all writers in reverse order, returning the first error encountered
func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// setupArchiveWriters creates the output file and, when c is set, the encoder on top of it.
//
//nolint:gosec // G304: dstPath is inside a backup set we just created
func setupArchiveWriters(dstPath string, c *codec, level int) (*archiveWriters, error) {
	outFile, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	aw := &archiveWriters{
		dest:    outFile,
		closers: []io.Closer{outFile},
	}

	if c != nil {
		enc, err := c.newWriter(outFile, level)
		if err != nil {
			outFile.Close() //nolint:errcheck // Best effort cleanup on error
			return nil, fmt.Errorf("failed to create %s writer: %w", c.name, err)
		}
		aw.closers = append(aw.closers, enc)
		aw.dest = enc
	}

	return aw, nil
}

// archiveFile streams srcPath into dstPath through codec c (nil = plain copy).
// It returns the number of source bytes read. A missing source surfaces as an
// error satisfying os.IsNotExist / errors.Is(err, fs.ErrNotExist).
//
//nolint:gosec // G304: srcPath comes from the record store
func archiveFile(srcPath, dstPath string, c *codec, level int) (written int64, err error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("source is not a regular file: %s", srcPath)
	}

	aw, err := setupArchiveWriters(dstPath, c, level)
	if err != nil {
		return 0, err
	}
	defer func() {
		closeErr := aw.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(dstPath) //nolint:errcheck // Best effort cleanup of partial archive
		}
	}()

	written, err = io.Copy(aw.dest, src)
	if err != nil {
		return written, fmt.Errorf("copy to archive: %w", err)
	}
	return written, nil
}

// extractFile decodes archivePath through codec c (nil = plain copy) into
// dstPath. The output is written to a temporary sibling and renamed, so an
// existing target is replaced atomically.
//
//nolint:gosec // G304: archivePath is inside a backup set, dstPath under the upload directory
func extractFile(archivePath, dstPath string, c *codec) (n int64, err error) {
	in, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	var reader io.Reader = in
	if c != nil {
		dec, err := c.newReader(in)
		if err != nil {
			return 0, fmt.Errorf("failed to create %s reader: %w", c.name, err)
		}
		defer dec.Close()
		reader = dec
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		return 0, fmt.Errorf("create target directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), "."+filepath.Base(dstPath)+".restore-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName) //nolint:errcheck // Best effort cleanup on error
		}
	}()

	n, err = io.Copy(tmp, reader)
	if err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return n, fmt.Errorf("decode archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("close restored file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o640); err != nil {
		return n, fmt.Errorf("chmod restored file: %w", err)
	}
	if err = os.Rename(tmpName, dstPath); err != nil {
		return n, fmt.Errorf("move restored file into place: %w", err)
	}
	return n, nil
}

// locateArchive finds the archived copy of filename inside filesDir and the
// codec that wrote it. When compressed is nil (no readable BackupInfo) every
// suffix is tried, compressed variants first.
func locateArchive(filesDir, filename string, compressed *bool) (string, *codec, bool) {
	type candidate struct {
		name  string
		codec *codec
	}

	var candidates []candidate
	if compressed == nil || *compressed {
		for _, c := range knownCodecs {
			candidates = append(candidates, candidate{filename + c.suffix, c})
		}
	}
	if compressed == nil || !*compressed {
		candidates = append(candidates, candidate{filename, nil})
	}

	for _, cand := range candidates {
		path := filepath.Join(filesDir, cand.name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, cand.codec, true
		}
	}
	return "", nil, false
}
