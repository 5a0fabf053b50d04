package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"trivia_backend/internal/model"
	"trivia_backend/internal/util"

	"github.com/xuri/excelize/v2"
)

// ImportColumns is the column order used for import, export and the template.
var ImportColumns = []string{
	"question_text",
	"correct_answer",
	"incorrect_answer_1",
	"incorrect_answer_2",
	"incorrect_answer_3",
	"category",
	"difficulty",
}

const importPreviewSize = 5

// SheetRow is one non-empty spreadsheet row with its 1-based line number.
type SheetRow struct {
	Line  int
	Cells []string
}

// SheetParser reads a question bank file into raw rows, header first.
type SheetParser interface {
	Parse(data []byte) ([]SheetRow, error)
}

type CSVSheetParser struct{}

func (CSVSheetParser) Parse(data []byte) ([]SheetRow, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []SheetRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, util.Invalid("failed to read CSV: %v", err)
		}
		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, SheetRow{Line: line, Cells: record})
	}
	return rows, nil
}

type XLSXSheetParser struct{}

func (XLSXSheetParser) Parse(data []byte) ([]SheetRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, util.Invalid("failed to open XLSX file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, util.Invalid("XLSX file has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, util.Invalid("failed to read sheet %q: %v", sheets[0], err)
	}

	var rows []SheetRow
	for i, record := range records {
		if blankRecord(record) {
			continue
		}
		rows = append(rows, SheetRow{Line: i + 1, Cells: record})
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParserFor picks a parser by file extension.
func ParserFor(filename string) (SheetParser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case util.ExtCSV:
		return CSVSheetParser{}, nil
	case util.ExtXLSX:
		return XLSXSheetParser{}, nil
	default:
		return nil, util.ErrUnsupportedFile
	}
}

type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportReport struct {
	TotalRows  int                      `json:"total_rows"`
	ValidCount int                      `json:"valid_count"`
	Errors     []RowError               `json:"errors"`
	Preview    []model.QuestionSnapshot `json:"preview"`
	Valid      []model.QuestionSnapshot `json:"-"`
}

// ValidateRows checks every data row. The header row may list the columns in any order.
func ValidateRows(rows []SheetRow) (*ImportReport, error) {
	if len(rows) == 0 {
		return nil, util.Invalid("file is empty")
	}

	index := make(map[string]int, len(ImportColumns))
	for i, h := range rows[0].Cells {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range ImportColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, util.Invalid("missing required columns: %s", strings.Join(missing, ", "))
	}

	report := &ImportReport{
		Errors:  []RowError{},
		Preview: []model.QuestionSnapshot{},
	}
	for _, row := range rows[1:] {
		report.TotalRows++
		cell := func(col string) string {
			i := index[col]
			if i < len(row.Cells) {
				return strings.TrimSpace(row.Cells[i])
			}
			return ""
		}

		var empty []string
		for _, col := range ImportColumns {
			if cell(col) == "" {
				empty = append(empty, col)
			}
		}
		if len(empty) > 0 {
			report.Errors = append(report.Errors, RowError{
				Line:    row.Line,
				Message: "missing " + strings.Join(empty, ", "),
			})
			continue
		}
		difficulty := strings.ToLower(cell("difficulty"))
		if !model.Difficulty(difficulty).Valid() {
			report.Errors = append(report.Errors, RowError{
				Line:    row.Line,
				Message: fmt.Sprintf("difficulty %q must be easy, medium or hard", cell("difficulty")),
			})
			continue
		}

		q := model.QuestionSnapshot{
			QuestionText:  cell("question_text"),
			CorrectAnswer: cell("correct_answer"),
			IncorrectAnswers: []string{
				cell("incorrect_answer_1"),
				cell("incorrect_answer_2"),
				cell("incorrect_answer_3"),
			},
			Category:   cell("category"),
			Difficulty: difficulty,
		}
		if hasDuplicateAnswer(q.CorrectAnswer, q.IncorrectAnswers) {
			report.Errors = append(report.Errors, RowError{
				Line:    row.Line,
				Message: "duplicate answers",
			})
			continue
		}
		report.Valid = append(report.Valid, q)
		if len(report.Preview) < importPreviewSize {
			report.Preview = append(report.Preview, q)
		}
	}
	report.ValidCount = len(report.Valid)
	return report, nil
}

// ParseImport parses and validates an uploaded question bank file.
func ParseImport(filename string, data []byte) (*ImportReport, error) {
	parser, err := ParserFor(filename)
	if err != nil {
		return nil, err
	}
	rows, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return ValidateRows(rows)
}

func exportRecord(q *model.CommunityQuestion) []string {
	rec := []string{q.QuestionText, q.CorrectAnswer, "", "", "", q.Category, q.Difficulty}
	for i := 0; i < 3 && i < len(q.IncorrectAnswers); i++ {
		rec[2+i] = q.IncorrectAnswers[i]
	}
	return rec
}

func WriteCSV(w io.Writer, questions []model.CommunityQuestion) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ImportColumns); err != nil {
		return err
	}
	for i := range questions {
		if err := cw.Write(exportRecord(&questions[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TemplateCSV is the header plus one example row.
func TemplateCSV(w io.Writer) error {
	example := model.CommunityQuestion{
		QuestionText:     "What is the capital of France?",
		CorrectAnswer:    "Paris",
		IncorrectAnswers: []string{"London", "Berlin", "Madrid"},
		Category:         "Geography",
		Difficulty:       string(model.DifficultyEasy),
	}
	return WriteCSV(w, []model.CommunityQuestion{example})
}

func WriteXLSX(w io.Writer, questions []model.CommunityQuestion) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Questions"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	header := make([]interface{}, len(ImportColumns))
	for i, c := range ImportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := range questions {
		rec := exportRecord(&questions[i])
		cells := make([]interface{}, len(rec))
		for j, v := range rec {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
