package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilePersistence implements ResultStore using file system storage
type FilePersistence struct {
	resultsDir string
}

// NewFilePersistence creates a new file-based result store
func NewFilePersistence(resultsDir string) (*FilePersistence, error) {
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &FilePersistence{resultsDir: resultsDir}, nil
}

// Save persists a record to a JSON file
func (fp *FilePersistence) Save(record *GameRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if !validID(record.ID) {
		return ErrInvalidSessionID
	}

	jsonData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp := fp.getFilePath(record.ID) + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}
	if err := os.Rename(tmp, fp.getFilePath(record.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write record file: %w", err)
	}

	return nil
}

// Load retrieves a record from a JSON file
func (fp *FilePersistence) Load(id string) (*GameRecord, error) {
	if !validID(id) {
		return nil, ErrInvalidSessionID
	}

	jsonData, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var record GameRecord
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &record, nil
}

// Delete removes a record file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove record file: %w", err)
	}

	return nil
}

// ListAll returns all persisted record IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

// Exists checks if a record file exists
func (fp *FilePersistence) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a record ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.resultsDir, fmt.Sprintf("%s.json", id))
}

func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\.`)
}
