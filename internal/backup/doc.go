// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package backup archives uploaded files into timestamped backup sets and
// restores them.
//
// # Overview
//
// A backup set is a directory under the backup root holding a per-file
// archive of every uploaded file known to the record store, a manifest
// listing what was archived, and a completion marker:
//
//	backup-2026-10-19T02-00-00-000Z/
//	  files/<filename>[.gz|.zst]
//	  manifest.json
//	  backup-info.json
//	  database.bak            (only when IncludeDatabase is set)
//
// backup-info.json is written last. A directory without it is not a
// complete set and is ignored by listing and retention.
//
// # Components
//
//	Service   - CreateBackup, RestoreBackup, CleanupOldBackups, ListBackups, GetBackupStats
//	Scheduler - runs CreateBackup immediately and then at a fixed interval
//	Config    - directories, retention, compression and schedule settings
//
// # Failure Model
//
// Per-file problems (missing source, unreadable file, invalid manifest
// entry) are logged and skipped. Structural problems (cannot create the set,
// cannot write the manifest or info file, cannot dump the record store)
// abort the run and delete the partial set. CreateBackup never returns an
// error: the outcome is reported in Result.
//
// # Usage
//
//	svc, err := backup.NewService(cfg, store, notifier)
//	if err != nil {
//		return err
//	}
//	svc.SetVerifier(pipeline)
//
//	sched := backup.NewScheduler(svc)
//	sched.Start(cfg.Schedule.IntervalHours)
//	defer func() {
//		sched.Stop()
//		sched.Wait()
//	}()
//
//	path, err := svc.ResolveSet("backup-2026-10-19T02-00-00-000Z")
//	if err != nil {
//		return err
//	}
//	result, err := svc.RestoreBackup(ctx, path)
//
// # Compression
//
// gzip (default) and zstd are provided by github.com/klauspost/compress.
// Compression levels 1-9 map onto each encoder's range. Restore picks the
// decoder from backup-info.json, falling back to probing the archive suffix.
//
// # Thread Safety
//
// One CreateBackup runs at a time per Service; a concurrent call returns a
// failed Result carrying ErrBackupInProgress. No cross-process lock is taken.
package backup
