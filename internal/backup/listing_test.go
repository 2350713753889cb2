// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetName(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"utc", time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC), "backup-2026-10-19T02-00-00-000Z"},
		{"milliseconds", time.Date(2026, 1, 2, 3, 4, 5, 678_900_000, time.UTC), "backup-2026-01-02T03-04-05-678Z"},
		{"offset converted to utc", time.Date(2026, 10, 19, 4, 0, 0, 0, time.FixedZone("CEST", 2*3600)), "backup-2026-10-19T02-00-00-000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SetName(tt.in)
			if got != tt.want {
				t.Errorf("SetName() = %s, want %s", got, tt.want)
			}
			if !IsSetName(got) {
				t.Errorf("IsSetName(%s) = false", got)
			}
		})
	}
}

func TestSetName_SortsChronologically(t *testing.T) {
	earlier := SetName(time.Date(2026, 9, 30, 23, 59, 59, 999_000_000, time.UTC))
	later := SetName(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	if earlier >= later {
		t.Errorf("%s should sort before %s", earlier, later)
	}
}

func TestIsSetName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"backup-2026-10-19T02-00-00-000Z", true},
		{"backup-2026-10-19T02:00:00.000Z", false},
		{"backup-2026-10-19", false},
		{"snapshot-2026-10-19T02-00-00-000Z", false},
		{"../backup-2026-10-19T02-00-00-000Z", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSetName(tt.name); got != tt.want {
			t.Errorf("IsSetName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestResolveSet(t *testing.T) {
	env := newTestEnv(t)

	path, err := env.svc.ResolveSet("backup-2026-10-19T02-00-00-000Z")
	if err != nil {
		t.Fatalf("ResolveSet() error = %v", err)
	}
	if want := filepath.Join(env.backupDir, "backup-2026-10-19T02-00-00-000Z"); path != want {
		t.Errorf("ResolveSet() = %s, want %s", path, want)
	}

	if _, err := env.svc.ResolveSet("../../etc"); !errors.Is(err, ErrInvalidSetName) {
		t.Errorf("ResolveSet(traversal) error = %v, want ErrInvalidSetName", err)
	}
}

func TestListBackups_ExcludesIncompleteSets(t *testing.T) {
	env := newTestEnv(t)

	oldest := env.writeSet(t, testEpoch.Add(-48*time.Hour))
	newest := env.writeSet(t, testEpoch)
	middle := env.writeSet(t, testEpoch.Add(-24*time.Hour))

	// Valid name, no backup-info.json.
	if err := os.MkdirAll(filepath.Join(env.backupDir, SetName(testEpoch.Add(time.Hour))), 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	// Valid name, malformed backup-info.json.
	malformed := filepath.Join(env.backupDir, SetName(testEpoch.Add(2*time.Hour)))
	if err := os.MkdirAll(malformed, 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(malformed, backupInfoFileName), []byte(`{"timestamp":`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	// Unrelated directory and file.
	if err := os.MkdirAll(filepath.Join(env.backupDir, "lost+found"), 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.backupDir, "README"), []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	sets, err := env.svc.ListBackups(context.Background())
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}

	want := []string{newest, middle, oldest}
	if len(sets) != len(want) {
		t.Fatalf("ListBackups() returned %d sets, want %d", len(sets), len(want))
	}
	for i, set := range sets {
		if set.Path != want[i] {
			t.Errorf("sets[%d] = %s, want %s", i, set.Path, want[i])
		}
		if set.Name != filepath.Base(set.Path) {
			t.Errorf("sets[%d].Name = %s", i, set.Name)
		}
	}
}

func TestListBackups_MissingDirectory(t *testing.T) {
	env := newTestEnv(t)
	if err := os.RemoveAll(env.backupDir); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}

	sets, err := env.svc.ListBackups(context.Background())
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if sets == nil || len(sets) != 0 {
		t.Errorf("ListBackups() = %v, want empty slice", sets)
	}
}

func TestGetBackupStats(t *testing.T) {
	env := newTestEnv(t)
	env.addUpload(t, "documents", "a.pdf", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	env.addUpload(t, "documents", "b.pdf", "bravo")

	first := env.svc.CreateBackup(context.Background())
	second := env.svc.CreateBackup(context.Background())
	if !first.Success || !second.Success {
		t.Fatalf("CreateBackup() failed: %s %s", first.Error, second.Error)
	}

	stats, err := env.svc.GetBackupStats(context.Background())
	if err != nil {
		t.Fatalf("GetBackupStats() error = %v", err)
	}
	if stats.TotalBackups != 2 {
		t.Errorf("TotalBackups = %d, want 2", stats.TotalBackups)
	}
	if want := first.TotalSize + second.TotalSize; stats.OriginalSize != want {
		t.Errorf("OriginalSize = %d, want %d", stats.OriginalSize, want)
	}

	firstSize, err := dirSize(first.BackupPath)
	if err != nil {
		t.Fatalf("dirSize() error = %v", err)
	}
	secondSize, err := dirSize(second.BackupPath)
	if err != nil {
		t.Fatalf("dirSize() error = %v", err)
	}
	if stats.OnDiskSize != firstSize+secondSize {
		t.Errorf("OnDiskSize = %d, want %d", stats.OnDiskSize, firstSize+secondSize)
	}

	if stats.NewestBackup == nil || stats.OldestBackup == nil {
		t.Fatal("Newest/OldestBackup not set")
	}
	if !stats.NewestBackup.After(*stats.OldestBackup) {
		t.Errorf("NewestBackup %v not after OldestBackup %v", stats.NewestBackup, stats.OldestBackup)
	}
}

func TestGetBackupStats_Empty(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.svc.GetBackupStats(context.Background())
	if err != nil {
		t.Fatalf("GetBackupStats() error = %v", err)
	}
	if stats.TotalBackups != 0 || stats.OnDiskSize != 0 || stats.OriginalSize != 0 {
		t.Errorf("stats = %+v, want zero", stats)
	}
	if stats.NewestBackup != nil || stats.OldestBackup != nil {
		t.Errorf("timestamps set on empty stats: %+v", stats)
	}
}
