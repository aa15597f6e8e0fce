package classroom_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

func TestExportRoster(t *testing.T) {
	f := newFixture(t)
	c := f.math(t)
	_, err := f.svc.AddStudents(f.ctx, f.teacher, c.ID, []string{"a@b.com"})
	require.NoError(t, err)

	roster, err := f.svc.ExportRoster(f.ctx, f.teacher, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Math101-roster.xlsx", roster.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(roster.Data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Roster")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Classroom", "Math101"}, rows[0])
	assert.Equal(t, "a@b.com", rows[5][1])
	assert.Equal(t, f.student.ID, rows[5][2])

	_, err = f.svc.ExportRoster(f.ctx, f.other, c.ID)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestImportRoster(t *testing.T) {
	f := newFixture(t)
	c := f.math(t)
	second, err := f.accounts.RegisterStudent(f.ctx, account.StudentSignup{Email: "second@b.com", Password: "secret1"})
	require.NoError(t, err)

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]any{"Name", "Email"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]any{"Ann", "A@b.com"}))
	require.NoError(t, book.SetSheetRow(sheet, "A3", &[]any{"Bo", "second@b.com"}))
	require.NoError(t, book.SetSheetRow(sheet, "A4", &[]any{"Ghost", "ghost@b.com"}))
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	got, err := f.svc.ImportRoster(f.ctx, f.teacher, c.ID, &buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.student.ID, second.ID}, got.Students)

	_, err = f.svc.ImportRoster(f.ctx, f.teacher, c.ID, bytes.NewReader([]byte("not a spreadsheet")))
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
}
