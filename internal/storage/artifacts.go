package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// BackupZip packs every table as "<name>_<mm-dd-yyyy>.csv", sorted by name.
func BackupZip(tables map[string]*sheet.Table, day time.Time) ([]byte, error) {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	stamp := day.Format("01-02-2006")
	for _, name := range names {
		w, err := zw.Create(name + "_" + stamp + ".csv")
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", name, err)
		}
		if err := sheet.WriteCSV(w, tables[name]); err != nil {
			return nil, fmt.Errorf("zip %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveBackup uploads the workbook as read at the start of a run.
func (s *Store) SaveBackup(ctx context.Context, tables map[string]*sheet.Table, day time.Time) (string, error) {
	data, err := BackupZip(tables, day)
	if err != nil {
		return "", err
	}
	key := s.BackupKey(day)
	if err := s.put(ctx, key, "application/zip", data); err != nil {
		return "", err
	}
	logger.Info("[Storage][SaveBackup] Saved workbook backup", "key", key, "sheets", len(tables), "bytes", len(data))
	return key, nil
}

// SaveSnapshots uploads one CSV per written sheet below runs/<runID>/.
func (s *Store) SaveSnapshots(ctx context.Context, runID string, tables []sheet.Named) ([]string, error) {
	keys := make([]string, 0, len(tables))
	for _, nt := range tables {
		data, err := sheet.EncodeCSV(nt.Table)
		if err != nil {
			return keys, fmt.Errorf("encode %s: %w", nt.Name, err)
		}
		key := s.key("runs", runID, nt.Name+".csv")
		if err := s.put(ctx, key, "text/csv", data); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	logger.Debug("[Storage][SaveSnapshots] Saved sheet snapshots", "run_id", runID, "files", len(keys))
	return keys, nil
}
