// Package cli renders command output for the finbot binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/pkg/utils"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteChatResponse writes an answer in the given format.
func WriteChatResponse(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", resp.Response)
	fmt.Fprintf(w, "confidence: %.2f", resp.ConfidenceScore)
	if resp.SuggestTicket {
		fmt.Fprint(w, " (consider opening a support ticket)")
	}
	fmt.Fprintln(w)
	return nil
}

// maxErrorLen bounds per-file error messages in text output.
const maxErrorLen = 120

// WriteUploadResult writes an ingestion summary with one line per file.
func WriteUploadResult(w io.Writer, res *models.UploadResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintln(w, res.Message)
	for _, f := range res.Files {
		line := fmt.Sprintf("  %-20s %s", f.Status, f.FileName)
		if f.Status == models.FileProcessed {
			line += fmt.Sprintf(" (%d chunks)", f.Chunks)
		}
		if f.Error != "" {
			line += ": " + utils.Truncate(f.Error, maxErrorLen)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteStatus writes the admin status report.
func WriteStatus(w io.Writer, st *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Vector store chunks: %d\n", st.VectorStoreSize)
	fmt.Fprintf(w, "Upload batches:      %d\n", st.Batches)
	fmt.Fprintf(w, "Files processed:     %d\n", st.Files)
	fmt.Fprintf(w, "Chunks recorded:     %d\n", st.Chunks)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:          %s\n", FormatBytes(*st.DiskUsageBytes))
	}
	if c := st.Config; c != nil {
		fmt.Fprintf(w, "Backend:             %s", c.VectorBackend)
		if c.IndexName != "" {
			fmt.Fprintf(w, " (%s)", c.IndexName)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Models:              embed=%s chat=%s\n", c.EmbeddingModel, c.ChatModel)
		fmt.Fprintf(w, "Chunking:            size=%d overlap=%d top_k=%d\n", c.ChunkSize, c.ChunkOverlap, c.TopK)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
