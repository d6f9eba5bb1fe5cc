// package formatter renders fetched items to JSON, CSV, Markdown and plain text, and writes batch manifests
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
)

// Supported output formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every format accepted by batch exports.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// Export is the outcome of one fetch session, labelled for output.
type Export struct {
	Name         string        `json:"name"`
	Listing      string        `json:"listing"`
	Items        []models.Item `json:"items"`
	ResumeCursor models.Cursor `json:"resume_cursor,omitempty"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

// Metadata is an [Export] without its items.
type Metadata struct {
	Name         string        `json:"name"`
	Listing      string        `json:"listing"`
	ItemCount    int           `json:"item_count"`
	ResumeCursor models.Cursor `json:"resume_cursor,omitempty"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

// NewExport labels a fetch outcome.
func NewExport(name, listing string, outcome models.FetchOutcome) *Export {
	return &Export{
		Name:         name,
		Listing:      listing,
		Items:        outcome.Items,
		ResumeCursor: outcome.ResumeCursor,
		FetchedAt:    time.Now().UTC(),
	}
}

// Metadata returns the export header.
func (e *Export) Metadata() Metadata {
	return Metadata{
		Name:         e.Name,
		Listing:      e.Listing,
		ItemCount:    len(e.Items),
		ResumeCursor: e.ResumeCursor,
		FetchedAt:    e.FetchedAt,
	}
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ItemsToCSV converts items to CSV with columns: ID, Title, Artist, Duration, Genre, Playbacks, Permalink
func ItemsToCSV(items []models.Item) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Duration", "Genre", "Playbacks", "Permalink"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.ID,
			item.Title,
			item.Artist,
			shared.FormatDuration(item.DurationMS),
			item.Genre,
			strconv.Itoa(item.PlaybackCount),
			item.PermalinkURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders an export as Markdown with an optional cover image.
func ExportToMarkdown(export *Export, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Listing**: %s\n", export.Listing)
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Items))
	if !export.ResumeCursor.IsZero() {
		buf.WriteString("**More available**: yes\n")
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, item := range export.Items {
		genre := ""
		if item.Genre != "" {
			genre = fmt.Sprintf(" (%s)", item.Genre)
		}
		title := item.Title
		if item.PermalinkURL != "" {
			title = fmt.Sprintf("[%s](%s)", item.Title, item.PermalinkURL)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, item.Artist, title, genre, shared.FormatDuration(item.DurationMS))
	}

	return buf.Bytes(), nil
}

// ExportToText renders an export as plain text.
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Listing: %s\n", export.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Items))

	for i, item := range export.Items {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, item.Artist, item.Title)
	}

	return buf.Bytes(), nil
}

// WriteItems writes items to w in the given format (json, csv or txt). Unknown formats fall back to text.
func WriteItems(w io.Writer, items []models.Item, format string, pretty bool) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = MarshalJSON(items, pretty)
		if err == nil {
			data = append(data, '\n')
		}
	case FormatCSV:
		data, err = ItemsToCSV(items)
	default:
		data, err = ExportToText(&Export{Items: items})
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport writes {base}_items.csv and {base}_metadata.json.
func WriteCSVExport(export *Export, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = SafeName(export.Name)
	}

	csvData, err := ItemsToCSV(export.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := MarshalJSON(export.Metadata(), true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when imageURL downloads, {dir}/cover.jpg.
//
// A failed image download is reported as a warning on stderr and does not fail the export.
func WriteMarkdownExport(export *Export, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = SafeName(export.Name)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes an export as plain text. Defaults to {name}_items.txt.
func WriteTextExport(export *Export, path string) (string, error) {
	if path == "" {
		path = SafeName(export.Name) + "_items.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes an export as indented JSON. Defaults to {name}.json.
func WriteJSONExport(export *Export, path string) (string, error) {
	if path == "" {
		path = SafeName(export.Name) + ".json"
	}

	data, err := MarshalJSON(export, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// SafeName turns a label into a file name: anything outside [A-Za-z0-9._-] becomes an underscore.
func SafeName(name string) string {
	if name == "" {
		return "export"
	}
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
