package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

// Generated file ids are the first 8 hex runes of a uuid.
const fileIDLen = 8

// Maximum column width applied when auto-sizing, in characters.
const maxColWidth = 50

// Generator writes processed result workbooks that users download
// after an analysis turn.
type Generator struct {
	dir    string
	reader *Reader
}

// NewGenerator creates a generator storing workbooks under dir.
func NewGenerator(dir string, reader *Reader) (*Generator, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Generator{dir: dir, reader: reader}, nil
}

// Generate builds a workbook from the uploaded file: the selected
// sheet's grid (first sheet when none is selected) with a styled header
// row, plus a note sheet carrying the analysis text. Returns the file
// id used for download.
func (g *Generator) Generate(filename string, content []byte, selectedSheet, note string) (string, error) {
	analysis, err := g.reader.Analyze(filename, content)
	if err != nil {
		return "", err
	}
	if len(analysis.Sheets) == 0 {
		return "", apperrors.User(apperrors.CodeSheetNotFound, "파일에 시트가 없습니다")
	}

	name := analysis.Sheets[0].Name
	if selectedSheet != "" && analysis.Sheet(selectedSheet) != nil {
		name = selectedSheet
	}
	rows, err := g.reader.ExtractSheet(filename, content, name)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	out := "처리된_" + name
	if err := f.SetSheetName("Sheet1", out); err != nil {
		return "", err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", err
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(out, cell, &vals); err != nil {
			return "", err
		}
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		if err := g.styleHeader(f, out, len(rows[0])); err != nil {
			return "", err
		}
		if err := g.autoSizeColumns(f, out, rows); err != nil {
			return "", err
		}
	}

	if note != "" {
		if err := g.writeNoteSheet(f, note); err != nil {
			return "", err
		}
	}

	id := uuid.NewString()[:fileIDLen]
	if err := f.SaveAs(filepath.Join(g.dir, id+".xlsx")); err != nil {
		return "", err
	}
	return id, nil
}

func (g *Generator) styleHeader(f *excelize.File, sheetName string, cols int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
	})
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, "A1", end, style)
}

func (g *Generator) autoSizeColumns(f *excelize.File, sheetName string, rows [][]string) error {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	for j := 0; j < cols; j++ {
		width := 0
		for _, row := range rows {
			if j < len(row) {
				if n := utf8.RuneCountInString(row[j]); n > width {
					width = n
				}
			}
		}
		if width+2 < maxColWidth {
			width += 2
		} else {
			width = maxColWidth
		}
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, col, col, float64(width)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeNoteSheet(f *excelize.File, note string) error {
	const name = "분석 내용"
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if err := f.SetCellValue(name, "A1", "분석 결과"); err != nil {
		return err
	}
	if err := f.SetCellValue(name, "A2", note); err != nil {
		return err
	}
	return f.SetColWidth(name, "A", "A", maxColWidth)
}

// Path resolves a file id to the stored workbook.
func (g *Generator) Path(fileID string) (string, error) {
	if !validFileID(fileID) {
		return "", apperrors.User(apperrors.CodeFileNotFound, "파일을 찾을 수 없습니다")
	}
	p := filepath.Join(g.dir, fileID+".xlsx")
	if _, err := os.Stat(p); err != nil {
		return "", apperrors.User(apperrors.CodeFileNotFound, "파일을 찾을 수 없습니다")
	}
	return p, nil
}

// Filename returns the download name for a generated file.
func Filename(fileID string) string {
	return fmt.Sprintf("analysis_result_%s.xlsx", fileID)
}

// validFileID accepts only the hex ids Generate produces, so a file id
// can never traverse out of the storage directory.
func validFileID(id string) bool {
	if len(id) != fileIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
