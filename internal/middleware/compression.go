// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/govportal/filevault/internal/logging"
)

// compressionMinSize is the smallest response body worth compressing.
const compressionMinSize = 1024

// Compression returns middleware that gzips responses larger than 1 KiB when
// the client accepts gzip.
func Compression() func(http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressionMinSize))
	if err != nil {
		// Only reachable with invalid options.
		logging.Error().Err(err).Msg("Failed to build gzip wrapper, compression disabled")
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}
}
