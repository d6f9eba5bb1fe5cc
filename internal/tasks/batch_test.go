package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/pagewalk/internal/formatter"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
	tu "github.com/desertthunder/pagewalk/internal/testing"
)

func batchJobs() []Job {
	return []Job{
		{Fetcher: named("search:lofi", threePages()), Quota: models.FetchQuota{MinimumEligible: 3}},
		{Name: "broken", Fetcher: threePages().FailOn("", shared.ErrServiceUnavailable)},
		{Name: "tail", Fetcher: threePages(), Cursor: tu.PageCursor(3), Quota: models.FetchQuota{MinimumEligible: 1}},
	}
}

func TestFetchMany(t *testing.T) {
	t.Run("isolates failures and keeps job order", func(t *testing.T) {
		e := newEngine(tu.NewMockCredentials("tok"))
		progress := make(chan ProgressUpdate, 10)

		result, err := e.FetchMany(context.Background(), batchJobs(), BatchOpts{NumWorkers: 3, RateLimit: 1000}, progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Total != 3 || result.Successful != 2 || result.Failed != 1 {
			t.Errorf("unexpected totals: %+v", result)
		}
		if result.SessionID == "" {
			t.Error("expected a session id")
		}
		if result.ManifestPath != "" {
			t.Errorf("expected no manifest without an output directory, got %q", result.ManifestPath)
		}

		names := []string{"search:lofi", "broken", "tail"}
		for i, res := range result.Results {
			if res.Index != i || res.Name != names[i] {
				t.Errorf("result %d = %q (index %d), want %q", i, res.Name, res.Index, names[i])
			}
		}

		if got := len(result.Results[0].Outcome.Items); got != 4 {
			t.Errorf("expected 4 items for the first job, got %d", got)
		}
		if !errors.Is(result.Results[1].Err, shared.ErrRequestFailed) {
			t.Errorf("expected a request failure for the broken job, got %v", result.Results[1].Err)
		}
		if got := tu.IDs(result.Results[2].Outcome.Items); len(got) != 2 || got[0] != "5" {
			t.Errorf("expected the resumed job to start at item 5, got %v", got)
		}

		close(progress)
		var updates int
		for u := range progress {
			if u.Phase != BatchSession || u.Total != 3 {
				t.Errorf("unexpected update %+v", u)
			}
			updates++
		}
		if updates != 3 {
			t.Errorf("expected 3 session updates, got %d", updates)
		}
	})

	t.Run("writes exports and a manifest", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		e := newEngine(tu.NewMockCredentials("tok"))

		result, err := e.FetchMany(context.Background(), batchJobs(), BatchOpts{
			Format:    formatter.FormatCSV,
			OutputDir: dir,
			RateLimit: 1000,
		}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertDirExists(t, dir)
		tu.AssertFileExists(t, filepath.Join(dir, "search_lofi_items.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "search_lofi_metadata.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "tail_items.csv"))

		if len(result.Results[0].Files) != 2 {
			t.Errorf("expected 2 files for a CSV export, got %v", result.Results[0].Files)
		}
		if len(result.Results[1].Files) != 0 {
			t.Errorf("failed job should write nothing, got %v", result.Results[1].Files)
		}

		var m formatter.Manifest
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &m); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if m.SessionID != result.SessionID || m.Format != formatter.FormatCSV {
			t.Errorf("unexpected manifest header: %+v", m)
		}
		if len(m.Entries) != 3 {
			t.Fatalf("expected 3 manifest entries, got %d", len(m.Entries))
		}
		if m.Entries[1].Status != formatter.StatusFailed || m.Entries[1].Error == "" {
			t.Errorf("expected the broken job to be marked failed: %+v", m.Entries[1])
		}
		if m.Entries[0].Status != formatter.StatusSuccess || m.Entries[0].Items != 4 || m.Entries[0].Listing != "search:lofi" {
			t.Errorf("unexpected first entry: %+v", m.Entries[0])
		}
	})

	t.Run("defaults to JSON", func(t *testing.T) {
		dir := t.TempDir()
		jobs := []Job{{Fetcher: tu.NewPagedFetcher(tu.Items("1"))}}

		result, err := newEngine(tu.NewMockCredentials("tok")).FetchMany(context.Background(), jobs, BatchOpts{OutputDir: dir, RateLimit: 1000}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Results[0].Name != "job-1" {
			t.Errorf("expected a generated name, got %q", result.Results[0].Name)
		}
		path := filepath.Join(dir, "job-1.json")
		var export formatter.Export
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &export); err != nil {
			t.Fatalf("invalid export: %v", err)
		}
		if len(export.Items) != 1 || export.Items[0].ID != "1" {
			t.Errorf("unexpected export items %+v", export.Items)
		}
	})

	t.Run("cancelled batch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := newEngine(tu.NewMockCredentials("tok")).FetchMany(ctx, batchJobs(), BatchOpts{RateLimit: 1000}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
		if result.Successful != 0 {
			t.Errorf("expected no successful sessions, got %d", result.Successful)
		}
	})

	t.Run("output directory cannot be created", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := newEngine(tu.NewMockCredentials("tok")).FetchMany(context.Background(), batchJobs(), BatchOpts{OutputDir: filepath.Join(file, "out")}, nil)
		if err == nil {
			t.Error("expected an error")
		}
	})
}
