package sheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(filepath.Join(t.TempDir(), "generated"), newTestReader())
	require.NoError(t, err)
	return g
}

func TestGenerateFromCSV(t *testing.T) {
	g := newTestGenerator(t)

	id, err := g.Generate("sales.csv", []byte("날짜,금액\n2026-01-01,1000\n"), "", "합계를 확인하세요")
	require.NoError(t, err)
	require.Len(t, id, 8)

	path, err := g.Path(id)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"처리된_sales", "분석 내용"}, f.GetSheetList())

	rows, err := f.GetRows("처리된_sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"날짜", "금액"}, rows[0])
	assert.Equal(t, []string{"2026-01-01", "1000"}, rows[1])

	note, err := f.GetCellValue("분석 내용", "A2")
	require.NoError(t, err)
	assert.Equal(t, "합계를 확인하세요", note)
}

func TestGeneratePicksSelectedSheet(t *testing.T) {
	g := newTestGenerator(t)

	id, err := g.Generate("sales.xlsx", workbookBytes(t), "매출", "")
	require.NoError(t, err)

	path, err := g.Path(id)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// No note sheet when the analysis text is empty.
	assert.Equal(t, []string{"처리된_매출"}, f.GetSheetList())

	rows, err := f.GetRows("처리된_매출")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"날짜", "금액", "지역"}, rows[0])
}

func TestGenerateFallsBackToFirstSheet(t *testing.T) {
	g := newTestGenerator(t)

	id, err := g.Generate("sales.xlsx", workbookBytes(t), "없는시트", "")
	require.NoError(t, err)

	path, err := g.Path(id)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "처리된_매출")
}

func TestPathUnknownID(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.Path("deadbeef")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFileNotFound))
}

func TestPathRejectsTraversal(t *testing.T) {
	g := newTestGenerator(t)

	for _, id := range []string{"../../etc", "..%2fetc", "DEADBEEF", "abc", "12345678x"} {
		_, err := g.Path(id)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeFileNotFound), "id %q", id)
	}
}

func TestDownloadFilename(t *testing.T) {
	assert.Equal(t, "analysis_result_a1b2c3d4.xlsx", Filename("a1b2c3d4"))
}
