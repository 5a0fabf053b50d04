package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"trivia_backend/internal/model"
	"trivia_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"geo", "capitals"}, NormalizeTags([]string{" Geo", "capitals", "GEO", "", "  "}))
	assert.Empty(t, NormalizeTags(nil))
}

func newBank(t *testing.T) (*testServices, *model.User, *model.Community) {
	t.Helper()
	ts := newTestServices(t)
	owner := seedUser(t, ts.db, "owner")
	c, err := ts.communities.Create(owner.ID, "Pub Quiz")
	require.NoError(t, err)
	return ts, owner, c
}

func capitalQuestion(city string) QuestionInput {
	return QuestionInput{
		QuestionText:     "Which city is a capital?",
		CorrectAnswer:    city,
		IncorrectAnswers: []string{"Lyon", "Porto", "Milan"},
		Category:         "Geography",
		Difficulty:       "Easy",
		Tags:             []string{"Capitals", "europe", "capitals"},
	}
}

func TestQuestionBankCreateValidates(t *testing.T) {
	ts, owner, c := newBank(t)
	other := seedUser(t, ts.db, "other")

	_, err := ts.bank.Create(other.ID, c.ID, capitalQuestion("Paris"))
	assert.ErrorIs(t, err, util.ErrNotCommissioner)

	bad := []QuestionInput{
		{QuestionText: "Q?", CorrectAnswer: "A", IncorrectAnswers: []string{"B", "C"}, Category: "X", Difficulty: "easy"},
		{QuestionText: "Q?", CorrectAnswer: "A", IncorrectAnswers: []string{"B", "C", " "}, Category: "X", Difficulty: "easy"},
		{QuestionText: "Q?", CorrectAnswer: "A", IncorrectAnswers: []string{"B", "C", "D"}, Category: "X", Difficulty: "brutal"},
		{QuestionText: "", CorrectAnswer: "A", IncorrectAnswers: []string{"B", "C", "D"}, Category: "X", Difficulty: "easy"},
		{QuestionText: "Q?", CorrectAnswer: "A", IncorrectAnswers: []string{"B", " b", "C"}, Category: "X", Difficulty: "easy"},
		{QuestionText: "Q?", CorrectAnswer: "A", IncorrectAnswers: []string{"B", "C", "a"}, Category: "X", Difficulty: "easy"},
	}
	for i, in := range bad {
		_, err := ts.bank.Create(owner.ID, c.ID, in)
		var inputErr *util.InputError
		assert.ErrorAs(t, err, &inputErr, "input %d", i)
	}

	q, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)
	assert.Equal(t, "easy", q.Difficulty)
	assert.Equal(t, []string{"capitals", "europe"}, []string(q.Tags))

	versions, err := ts.bank.History(owner.ID, c.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, model.ChangeCreated, versions[0].ChangeType)
}

func TestQuestionBankListFilters(t *testing.T) {
	ts, owner, c := newBank(t)
	paris, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)
	science := QuestionInput{
		QuestionText:     "What is H2O?",
		CorrectAnswer:    "Water",
		IncorrectAnswers: []string{"Salt", "Sand", "Air"},
		Category:         "Science",
		Difficulty:       "hard",
		Tags:             []string{"chemistry"},
	}
	_, err = ts.bank.Create(owner.ID, c.ID, science)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter BankFilter
		want   int
	}{
		{name: "everything", filter: BankFilter{}, want: 2},
		{name: "search matches answers", filter: BankFilter{Search: "porto"}, want: 1},
		{name: "category", filter: BankFilter{Category: "Science"}, want: 1},
		{name: "difficulty", filter: BankFilter{Difficulty: "HARD"}, want: 1},
		{name: "tag", filter: BankFilter{Tag: "Capitals"}, want: 1},
		{name: "filters combine", filter: BankFilter{Tag: "capitals", Difficulty: "hard"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ts.bank.List(owner.ID, c.ID, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	got, err := ts.bank.List(owner.ID, c.ID, BankFilter{Tag: "capitals"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, paris.ID, got[0].ID)
}

func TestQuestionBankVersionsArePruned(t *testing.T) {
	ts, owner, c := newBank(t)
	q, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)

	for i := 0; i < model.MaxQuestionVersions+2; i++ {
		in := capitalQuestion(fmt.Sprintf("City %d", i))
		_, err := ts.bank.Update(owner.ID, c.ID, q.ID, in)
		require.NoError(t, err)
	}

	versions, err := ts.bank.History(owner.ID, c.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, versions, model.MaxQuestionVersions)
	assert.Equal(t, fmt.Sprintf("City %d", model.MaxQuestionVersions+1), versions[0].Snapshot.Data().CorrectAnswer, "newest first")
	for _, v := range versions {
		assert.Equal(t, model.ChangeEdited, v.ChangeType, "the creation entry was pruned")
	}
}

func TestQuestionBankRestore(t *testing.T) {
	ts, owner, c := newBank(t)
	q, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)
	_, err = ts.bank.Update(owner.ID, c.ID, q.ID, capitalQuestion("Rome"))
	require.NoError(t, err)

	versions, err := ts.bank.History(owner.ID, c.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	original := versions[1]

	restored, err := ts.bank.Restore(owner.ID, c.ID, q.ID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", restored.CorrectAnswer)

	versions, err = ts.bank.History(owner.ID, c.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, model.ChangeRestored, versions[0].ChangeType)

	_, err = ts.bank.Restore(owner.ID, c.ID, q.ID, 9999)
	assert.ErrorIs(t, err, util.ErrVersionNotFound)
	_, err = ts.bank.Restore(owner.ID, c.ID, 9999, original.ID)
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestQuestionBankTags(t *testing.T) {
	ts, owner, c := newBank(t)
	a, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)
	b, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Rome"))
	require.NoError(t, err)

	q, err := ts.bank.AddTag(owner.ID, c.ID, a.ID, "  Trivia Night ")
	require.NoError(t, err)
	assert.Equal(t, []string{"capitals", "europe", "trivia night"}, []string(q.Tags))

	_, err = ts.bank.AddTag(owner.ID, c.ID, a.ID, "   ")
	var inputErr *util.InputError
	assert.ErrorAs(t, err, &inputErr)

	q, err = ts.bank.RemoveTag(owner.ID, c.ID, a.ID, "EUROPE")
	require.NoError(t, err)
	assert.Equal(t, []string{"capitals", "trivia night"}, []string(q.Tags))

	changed, err := ts.bank.BulkTag(owner.ID, c.ID, []uint{a.ID, b.ID}, "trivia night", true)
	require.NoError(t, err)
	assert.Equal(t, 1, changed, "only the question without the tag changes")

	changed, err = ts.bank.BulkTag(owner.ID, c.ID, []uint{a.ID, b.ID}, "capitals", false)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	list, err := ts.bank.List(owner.ID, c.ID, BankFilter{Tag: "capitals"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestQuestionBankBulkTagIsAllOrNothing(t *testing.T) {
	ts, owner, c := newBank(t)
	var ids []uint
	for _, city := range []string{"Paris", "Rome", "Madrid"} {
		q, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion(city))
		require.NoError(t, err)
		ids = append(ids, q.ID)
	}

	updates := 0
	require.NoError(t, ts.db.Callback().Update().Before("gorm:update").Register("fail_second_question", func(db *gorm.DB) {
		if db.Statement.Table != "community_questions" {
			return
		}
		if updates++; updates == 2 {
			db.AddError(errors.New("disk full"))
		}
	}))

	changed, err := ts.bank.BulkTag(owner.ID, c.ID, ids, "finals", true)
	require.Error(t, err)
	assert.Zero(t, changed)
	require.NoError(t, ts.db.Callback().Update().Remove("fail_second_question"))

	tagged, err := ts.bank.List(owner.ID, c.ID, BankFilter{Tag: "finals"})
	require.NoError(t, err)
	assert.Empty(t, tagged, "the first question is rolled back too")
	versions, err := ts.bank.History(owner.ID, c.ID, ids[0])
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	changed, err = ts.bank.BulkTag(owner.ID, c.ID, ids, "finals", true)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)
}

func TestQuestionBankDelete(t *testing.T) {
	ts, owner, c := newBank(t)
	a, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)
	b, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Rome"))
	require.NoError(t, err)
	d, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Madrid"))
	require.NoError(t, err)

	require.NoError(t, ts.bank.Delete(owner.ID, c.ID, a.ID))
	assert.ErrorIs(t, ts.bank.Delete(owner.ID, c.ID, a.ID), util.ErrQuestionNotFound)

	n, err := ts.bank.BulkDelete(owner.ID, c.ID, []uint{b.ID, d.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := ts.bank.BankRepo.Count(c.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestQuestionBankTemplates(t *testing.T) {
	ts, owner, c := newBank(t)
	q, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)

	_, err = ts.bank.SaveTemplate(owner.ID, c.ID, q.ID, " ")
	var inputErr *util.InputError
	assert.ErrorAs(t, err, &inputErr)

	tpl, err := ts.bank.SaveTemplate(owner.ID, c.ID, q.ID, "Capitals")
	require.NoError(t, err)
	assert.Equal(t, "Paris", tpl.Content.Data().CorrectAnswer)

	list, err := ts.bank.ListTemplates(owner.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	dup, err := ts.bank.CreateFromTemplate(owner.ID, c.ID, tpl.ID)
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, dup.ID)
	assert.Equal(t, q.QuestionText, dup.QuestionText)
	assert.Equal(t, []string(q.IncorrectAnswers), []string(dup.IncorrectAnswers))

	require.NoError(t, ts.bank.DeleteTemplate(owner.ID, c.ID, tpl.ID))
	assert.ErrorIs(t, ts.bank.DeleteTemplate(owner.ID, c.ID, tpl.ID), util.ErrTemplateNotFound)
	_, err = ts.bank.CreateFromTemplate(owner.ID, c.ID, tpl.ID)
	assert.ErrorIs(t, err, util.ErrTemplateNotFound)
}

func TestQuestionBankImport(t *testing.T) {
	ts, owner, c := newBank(t)
	data := []byte(csvHeader +
		"Capital of France?,Paris,London,Berlin,Madrid,Geography,easy\n" +
		"Capital of Peru?,Lima,Quito,Bogota,Caracas,Geography,hard\n" +
		"Broken row?,,a,b,c,Geography,easy\n")

	report, err := ts.bank.ValidateImport(owner.ID, c.ID, "bank.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ValidCount)
	count, err := ts.bank.BankRepo.Count(c.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "validation never writes")

	result, err := ts.bank.CommitImport(context.Background(), owner.ID, c.ID, "bank.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.NotEmpty(t, result.FileURL)
	assert.NotZero(t, result.LogID)

	count, err = ts.bank.BankRepo.Count(c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	logs, err := ts.bank.ImportLogs(owner.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 3, logs[0].TotalRows)
	assert.Equal(t, 2, logs[0].ImportedRows)
	assert.Equal(t, 1, logs[0].FailedRows)

	dash, err := ts.communities.Dashboard(owner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dash.QuestionCount)
	assert.Len(t, dash.RecentImports, 1)

	_, err = ts.bank.ValidateImport(owner.ID, c.ID, "bank.xlsx", data)
	assert.ErrorIs(t, err, util.ErrUnsupportedFile, "csv bytes behind an xlsx name are rejected")
}

func TestQuestionBankExport(t *testing.T) {
	ts, owner, c := newBank(t)
	_, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion("Paris"))
	require.NoError(t, err)

	csvFile, err := ts.bank.Export(owner.ID, c.ID, "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(csvFile.Name, "pub-quiz-questions-"))
	assert.True(t, strings.HasSuffix(csvFile.Name, ".csv"))
	assert.Equal(t, util.MimeCSV, csvFile.ContentType)

	report, err := ParseImport(csvFile.Name, csvFile.Body)
	require.NoError(t, err)
	require.Equal(t, 1, report.ValidCount)
	assert.Equal(t, "Paris", report.Valid[0].CorrectAnswer)

	xlsxFile, err := ts.bank.Export(owner.ID, c.ID, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, util.MimeXLSX, xlsxFile.ContentType)
	report, err = ParseImport(xlsxFile.Name, xlsxFile.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ValidCount)
}
