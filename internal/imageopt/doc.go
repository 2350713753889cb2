// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package imageopt generates web-optimized derivatives of uploaded images.
//
// Decoding and resizing use github.com/disintegration/imaging with the WebP
// decoder from golang.org/x/image registered. Encoding to WebP and AVIF is
// delegated to an Encoder; the default CommandEncoder runs cwebp and avifenc.
package imageopt
