package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"trivia_backend/internal/model"
	"trivia_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const csvHeader = "question_text,correct_answer,incorrect_answer_1,incorrect_answer_2,incorrect_answer_3,category,difficulty\n"

func TestParseImportCSV(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantErr    string
		wantTotal  int
		wantValid  int
		wantErrors []RowError
	}{
		{
			name:      "valid rows",
			input:     csvHeader + "Capital of France?,Paris,London,Berlin,Madrid,Geography,Easy\n2+2?,4,3,5,22,Math,medium\n",
			wantTotal: 2,
			wantValid: 2,
		},
		{
			name:      "byte order mark",
			input:     "\xef\xbb\xbf" + csvHeader + "Capital of France?,Paris,London,Berlin,Madrid,Geography,easy\n",
			wantTotal: 1,
			wantValid: 1,
		},
		{
			name: "columns in any order",
			input: "category,difficulty,question_text,correct_answer,incorrect_answer_3,incorrect_answer_2,incorrect_answer_1\n" +
				"Geography,hard,Capital of Peru?,Lima,Quito,Bogota,Caracas\n",
			wantTotal: 1,
			wantValid: 1,
		},
		{
			name:      "missing field",
			input:     csvHeader + "Capital of France?,,London,Berlin,Madrid,Geography,easy\n",
			wantTotal: 1,
			wantValid: 0,
			wantErrors: []RowError{
				{Line: 2, Message: "missing correct_answer"},
			},
		},
		{
			name:      "bad difficulty",
			input:     csvHeader + "Capital of France?,Paris,London,Berlin,Madrid,Geography,extreme\n",
			wantTotal: 1,
			wantValid: 0,
			wantErrors: []RowError{
				{Line: 2, Message: `difficulty "extreme" must be easy, medium or hard`},
			},
		},
		{
			name: "duplicate answers",
			input: csvHeader +
				"Capital of France?,Paris,London,london ,Madrid,Geography,easy\n" +
				"Capital of Spain?,Madrid,Lisbon,MADRID,Rome,Geography,easy\n" +
				"Capital of Italy?,Rome,Lisbon,Paris,Madrid,Geography,easy\n",
			wantTotal: 3,
			wantValid: 1,
			wantErrors: []RowError{
				{Line: 2, Message: "duplicate answers"},
				{Line: 3, Message: "duplicate answers"},
			},
		},
		{
			name:      "blank lines are skipped",
			input:     csvHeader + "\n,,,,,,\nCapital of France?,Paris,London,Berlin,Madrid,Geography,easy\n",
			wantTotal: 1,
			wantValid: 1,
		},
		{
			name:    "missing column",
			input:   "question_text,correct_answer,category,difficulty\nQ?,A,Cat,easy\n",
			wantErr: "missing required columns: incorrect_answer_1, incorrect_answer_2, incorrect_answer_3",
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: "file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ParseImport("bank.csv", []byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				var inputErr *util.InputError
				assert.True(t, errors.As(err, &inputErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, report.TotalRows)
			assert.Equal(t, tt.wantValid, report.ValidCount)
			assert.Len(t, report.Valid, tt.wantValid)
			if tt.wantErrors == nil {
				assert.Empty(t, report.Errors)
			} else {
				assert.Equal(t, tt.wantErrors, report.Errors)
			}
		})
	}
}

func TestParseImportNormalizesRows(t *testing.T) {
	input := csvHeader + "  Capital of Peru?  ,Lima, Quito ,Bogota,Caracas,Geography,HARD\n"
	report, err := ParseImport("bank.csv", []byte(input))
	require.NoError(t, err)
	require.Len(t, report.Valid, 1)
	assert.Equal(t, model.QuestionSnapshot{
		QuestionText:     "Capital of Peru?",
		CorrectAnswer:    "Lima",
		IncorrectAnswers: []string{"Quito", "Bogota", "Caracas"},
		Category:         "Geography",
		Difficulty:       "hard",
	}, report.Valid[0])
}

func TestParseImportPreviewIsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "Question %d?,A,B,C,D,General,easy\n", i)
	}
	report, err := ParseImport("bank.csv", []byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 8, report.ValidCount)
	assert.Len(t, report.Preview, importPreviewSize)
	assert.Equal(t, "Question 0?", report.Preview[0].QuestionText)
}

func TestParseImportUnsupportedExtension(t *testing.T) {
	_, err := ParseImport("bank.txt", []byte(csvHeader))
	assert.ErrorIs(t, err, util.ErrUnsupportedFile)
}

func TestXLSXRoundTrip(t *testing.T) {
	questions := []model.CommunityQuestion{
		{QuestionText: "Capital of France?", CorrectAnswer: "Paris", IncorrectAnswers: []string{"London", "Berlin", "Madrid"}, Category: "Geography", Difficulty: "easy"},
		{QuestionText: "Largest planet?", CorrectAnswer: "Jupiter", IncorrectAnswers: []string{"Mars", "Venus", "Saturn"}, Category: "Science", Difficulty: "medium"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, questions))

	ext, err := util.SniffImportFile("bank.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, util.ExtXLSX, ext)

	report, err := ParseImport("bank.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRows)
	require.Len(t, report.Valid, 2)
	assert.Equal(t, "Jupiter", report.Valid[1].CorrectAnswer)
	assert.Equal(t, []string{"Mars", "Venus", "Saturn"}, report.Valid[1].IncorrectAnswers)
}

func TestXLSXRowErrorsUseSheetLines(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(ImportColumns))
	for i, c := range ImportColumns {
		header[i] = c
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Q?", "A", "B", "C", "D", "Cat", "easy"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"Q2?", "A", "B", "C", "D", "Cat", "impossible"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	report, err := ParseImport("bank.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.ValidCount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 4, report.Errors[0].Line)
}

func TestTemplateCSVParsesCleanly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TemplateCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(ImportColumns, ",")+"\n"))

	report, err := ParseImport("template.csv", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ValidCount)
	assert.Empty(t, report.Errors)
}
