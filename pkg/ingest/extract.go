package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// extracted is one unit of content pulled from a file before chunking.
type extracted struct {
	content  string
	metadata map[string]string

	// chunkable marks content that should be split by the chunker.
	// Structured entries (JSON documents) are stored whole.
	chunkable bool
}

// SupportedExtensions lists file types the extractor understands.
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".json", ".pdf", ".docx", ".xlsx"}
}

func extract(ctx context.Context, path string) ([]extracted, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		return extractPlainText(path)
	case ".json":
		return extractJSON(path)
	case ".pdf":
		return extractPDF(ctx, path)
	case ".docx":
		return extractDocx(path)
	case ".xlsx":
		return extractXlsx(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func extractPlainText(path string) ([]extracted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return []extracted{{
		content:   string(data),
		metadata:  map[string]string{"source": path},
		chunkable: true,
	}}, nil
}

// extractJSON accepts either an array of documents or a single object.
// Each entry's "content" (or "text") field is the body; remaining fields
// become metadata, with "source" defaulting to the file path.
func extractJSON(path string) ([]extracted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(data, &entries); err != nil {
		var single map[string]interface{}
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		entries = []map[string]interface{}{single}
	}

	var out []extracted
	for _, entry := range entries {
		content := ""
		if c, ok := entry["content"].(string); ok {
			content = c
		} else if c, ok := entry["text"].(string); ok {
			content = c
		}
		if content == "" {
			continue
		}

		metadata := map[string]string{"source": path}
		for key, value := range entry {
			if key == "content" || key == "text" {
				continue
			}
			if str, ok := value.(string); ok {
				metadata[key] = str
			} else {
				metadata[key] = fmt.Sprint(value)
			}
		}

		out = append(out, extracted{content: content, metadata: metadata})
	}
	return out, nil
}

func extractPDF(ctx context.Context, path string) ([]extracted, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	totalPages := reader.NumPage()
	var parts []string
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	return []extracted{{
		content: strings.Join(parts, "\n\n"),
		metadata: map[string]string{
			"source": path,
			"type":   "pdf",
			"pages":  fmt.Sprintf("%d", totalPages),
		},
		chunkable: true,
	}}, nil
}

func extractDocx(path string) ([]extracted, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	return []extracted{{
		content: doc.Editable().GetContent(),
		metadata: map[string]string{
			"source": path,
			"type":   "docx",
		},
		chunkable: true,
	}}, nil
}

func extractXlsx(ctx context.Context, path string) ([]extracted, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var parts []string
	for _, sheet := range sheets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Sheet: %s\n", sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
		parts = append(parts, b.String())
	}

	return []extracted{{
		content: strings.Join(parts, "\n"),
		metadata: map[string]string{
			"source": path,
			"type":   "xlsx",
			"sheets": fmt.Sprintf("%d", len(sheets)),
		},
		chunkable: true,
	}}, nil
}
