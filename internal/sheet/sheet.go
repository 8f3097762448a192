// Package sheet reads uploaded spreadsheet files and produces the
// structural summaries the assistant feeds into prompts.
package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

// Preview rows included per sheet in summaries.
const previewRows = 5

// SheetInfo describes one sheet of a workbook.
type SheetInfo struct {
	Name    string     `json:"name"`
	Rows    int        `json:"rows"`
	Cols    int        `json:"cols"`
	Headers []string   `json:"headers,omitempty"`
	Preview [][]string `json:"preview,omitempty"`
}

// Analysis is the structural summary of an uploaded file.
type Analysis struct {
	Filename string      `json:"filename"`
	Sheets   []SheetInfo `json:"sheets"`
}

// SheetNames returns the workbook's sheet names in order.
func (a *Analysis) SheetNames() []string {
	names := make([]string, len(a.Sheets))
	for i, s := range a.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the named sheet, or nil when absent.
func (a *Analysis) Sheet(name string) *SheetInfo {
	for i := range a.Sheets {
		if a.Sheets[i].Name == name {
			return &a.Sheets[i]
		}
	}
	return nil
}

// Reader parses uploaded spreadsheet content.
type Reader struct {
	maxBytes int64
	allowed  map[string]bool
}

// NewReader builds a Reader enforcing the size cap and the allowed
// file extensions (".xlsx" etc.).
func NewReader(maxBytes int64, allowedTypes []string) *Reader {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, ext := range allowedTypes {
		allowed[strings.ToLower(ext)] = true
	}
	return &Reader{maxBytes: maxBytes, allowed: allowed}
}

// Analyze parses a file and returns its structural summary.
// The file extension decides the parser; unknown extensions and
// oversized payloads are rejected.
func (r *Reader) Analyze(filename string, content []byte) (*Analysis, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !r.allowed[ext] {
		return nil, apperrors.User(apperrors.CodeFileFormatUnsupported,
			fmt.Sprintf("지원하지 않는 파일 형식입니다: %s", ext))
	}
	if r.maxBytes > 0 && int64(len(content)) > r.maxBytes {
		return nil, apperrors.User(apperrors.CodeFileTooLarge,
			fmt.Sprintf("파일이 너무 큽니다 (최대 %dMB)", r.maxBytes/(1024*1024)))
	}

	if ext == ".csv" {
		return analyzeCSV(filename, content)
	}
	return analyzeWorkbook(filename, content)
}

func analyzeWorkbook(filename string, content []byte) (*Analysis, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFileFormatUnsupported,
			"파일을 읽을 수 없습니다", apperrors.CategoryUser)
	}
	defer f.Close()

	analysis := &Analysis{Filename: filename}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSheetNotFound,
				"시트를 읽을 수 없습니다", apperrors.CategoryUser)
		}
		analysis.Sheets = append(analysis.Sheets, summarizeRows(name, rows))
	}
	return analysis, nil
}

func analyzeCSV(filename string, content []byte) (*Analysis, error) {
	rows, err := csvRows(content)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return &Analysis{
		Filename: filename,
		Sheets:   []SheetInfo{summarizeRows(name, rows)},
	}, nil
}

func csvRows(content []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeFileFormatUnsupported,
				"CSV 파일을 읽을 수 없습니다", apperrors.CategoryUser)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func summarizeRows(name string, rows [][]string) SheetInfo {
	info := SheetInfo{Name: name, Rows: len(rows)}
	for _, row := range rows {
		if len(row) > info.Cols {
			info.Cols = len(row)
		}
	}
	if len(rows) > 0 {
		info.Headers = rows[0]
	}
	n := len(rows)
	if n > previewRows {
		n = previewRows
	}
	info.Preview = rows[:n]
	return info
}

// ExtractSheet returns the full cell grid of one sheet.
func (r *Reader) ExtractSheet(filename string, content []byte, sheetName string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !r.allowed[ext] {
		return nil, apperrors.User(apperrors.CodeFileFormatUnsupported,
			fmt.Sprintf("지원하지 않는 파일 형식입니다: %s", ext))
	}

	if ext == ".csv" {
		return csvRows(content)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFileFormatUnsupported,
			"파일을 읽을 수 없습니다", apperrors.CategoryUser)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheetName)
	if err != nil || idx < 0 {
		return nil, apperrors.User(apperrors.CodeSheetNotFound,
			fmt.Sprintf("시트를 찾을 수 없습니다: %s", sheetName))
	}
	return f.GetRows(sheetName)
}

// Summary renders a prompt-ready description of the analysis, focused
// on the selected sheet when one is chosen.
func Summary(a *Analysis, selectedSheet string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "파일명: %s\n", a.Filename)
	fmt.Fprintf(&b, "시트 목록: %s\n", strings.Join(a.SheetNames(), ", "))

	for _, s := range a.Sheets {
		if selectedSheet != "" && s.Name != selectedSheet {
			continue
		}
		fmt.Fprintf(&b, "\n[시트: %s] %d행 x %d열\n", s.Name, s.Rows, s.Cols)
		if len(s.Headers) > 0 {
			fmt.Fprintf(&b, "헤더: %s\n", strings.Join(s.Headers, " | "))
		}
		for i, row := range s.Preview {
			if i == 0 && len(s.Headers) > 0 {
				continue
			}
			fmt.Fprintf(&b, "  %s\n", strings.Join(row, " | "))
		}
	}
	return b.String()
}
