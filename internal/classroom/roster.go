package classroom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

const rosterSheet = "Roster"

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Roster is an exported spreadsheet.
type Roster struct {
	Filename string
	Data     []byte
}

// ContentType is the xlsx MIME type.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportRoster builds an xlsx listing the enrolled students of a classroom owned by who.
func (s *Service) ExportRoster(ctx context.Context, who account.Identity, classID string) (Roster, error) {
	c, err := s.owned(ctx, who, classID)
	if err != nil {
		return Roster{}, err
	}
	var students []account.Student
	if len(c.Students) > 0 {
		if students, err = s.directory.StudentsByIDs(ctx, c.Students); err != nil {
			return Roster{}, storeErr(err, "load students")
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return Roster{}, apperr.Wrap(apperr.Internal, "build roster", err)
	}
	rows := [][]any{
		{"Classroom", c.Name},
		{"Subject", c.Subject},
		{"Timeslot", c.Timeslot},
		{},
		{"#", "Email", "Student ID", "Registered"},
	}
	for i, st := range students {
		rows = append(rows, []any{i + 1, st.Email, st.ID, st.CreatedAt.Format("2006-01-02")})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return Roster{}, apperr.Wrap(apperr.Internal, "build roster", err)
		}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return Roster{}, apperr.Wrap(apperr.Internal, "build roster", err)
		}
	}
	if err := f.SetColWidth(rosterSheet, "B", "C", 38); err != nil {
		return Roster{}, apperr.Wrap(apperr.Internal, "build roster", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return Roster{}, apperr.Wrap(apperr.Internal, "write roster", err)
	}
	name := strings.Trim(unsafeFilename.ReplaceAllString(c.Name, "_"), "_")
	if name == "" {
		name = "classroom"
	}
	return Roster{Filename: fmt.Sprintf("%s-roster.xlsx", name), Data: buf.Bytes()}, nil
}

// ImportRoster enrolls every student whose email appears in the first sheet of an xlsx file.
// Cells without an "@" are ignored, so header rows and name columns are harmless.
func (s *Service) ImportRoster(ctx context.Context, who account.Identity, classID string, r io.Reader) (Classroom, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Classroom{}, apperr.Wrap(apperr.Invalid, "roster must be an xlsx file", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close roster file")
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Classroom{}, apperr.InvalidField("roster", "roster file has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Classroom{}, apperr.Wrap(apperr.Invalid, "read roster rows", err)
	}
	var emails []string
	for _, row := range rows {
		for _, cell := range row {
			if strings.Contains(cell, "@") {
				emails = append(emails, cell)
			}
		}
	}
	if len(emails) == 0 {
		return Classroom{}, apperr.InvalidField("roster", "roster file contains no email addresses")
	}
	return s.AddStudents(ctx, who, classID, emails)
}
