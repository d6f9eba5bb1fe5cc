package formatter

import (
	"fmt"
	"os"
	"time"
)

// Manifest summarises a batch of fetch sessions written to disk.
type Manifest struct {
	SessionID       string          `json:"session_id"`
	Format          string          `json:"format"`
	CreatedAt       time.Time       `json:"created_at"`
	OutputDirectory string          `json:"output_directory"`
	TotalJobs       int             `json:"total_jobs"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	Entries         []ManifestEntry `json:"entries"`
}

// ManifestEntry describes one session of a batch.
type ManifestEntry struct {
	Name         string   `json:"name"`
	Listing      string   `json:"listing"`
	Status       string   `json:"status"`
	Items        int      `json:"items"`
	ResumeCursor string   `json:"resume_cursor,omitempty"`
	Files        []string `json:"files,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Entry statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(m Manifest, path string) error {
	data, err := MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
