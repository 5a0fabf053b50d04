package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/util"
	"trivia_backend/pkg/logger"
	"trivia_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type QuestionInput struct {
	QuestionText     string   `json:"question_text"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Tags             []string `json:"tags"`
}

type BankFilter struct {
	Search     string
	Category   string
	Difficulty string
	Tag        string
}

type ImportResult struct {
	Report   *ImportReport `json:"report"`
	Imported int           `json:"imported"`
	FileURL  string        `json:"file_url,omitempty"`
	LogID    uint          `json:"log_id"`
}

// NormalizeTags trims, lowercases and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func answerKey(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

// hasDuplicateAnswer reports whether any two answers match ignoring case and
// surrounding space.
func hasDuplicateAnswer(correct string, wrong []string) bool {
	seen := map[string]bool{answerKey(correct): true}
	for _, a := range wrong {
		k := answerKey(a)
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

func (in QuestionInput) snapshot() (model.QuestionSnapshot, error) {
	s := model.QuestionSnapshot{
		QuestionText:  strings.TrimSpace(in.QuestionText),
		CorrectAnswer: strings.TrimSpace(in.CorrectAnswer),
		Category:      strings.TrimSpace(in.Category),
		Difficulty:    strings.ToLower(strings.TrimSpace(in.Difficulty)),
		Tags:          NormalizeTags(in.Tags),
	}
	if s.QuestionText == "" || s.CorrectAnswer == "" || s.Category == "" {
		return s, util.Invalid("question text, correct answer and category are required")
	}
	if !model.Difficulty(s.Difficulty).Valid() {
		return s, util.Invalid("difficulty must be easy, medium or hard")
	}
	if len(in.IncorrectAnswers) != 3 {
		return s, util.Invalid("exactly 3 incorrect answers are required")
	}
	for _, a := range in.IncorrectAnswers {
		a = strings.TrimSpace(a)
		if a == "" {
			return s, util.Invalid("incorrect answers must not be empty")
		}
		s.IncorrectAnswers = append(s.IncorrectAnswers, a)
	}
	if hasDuplicateAnswer(s.CorrectAnswer, s.IncorrectAnswers) {
		return s, util.Invalid("answers must all be different")
	}
	return s, nil
}

func matchesSearch(q *model.CommunityQuestion, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	fields := append([]string{q.QuestionText, q.CorrectAnswer, q.Category}, q.IncorrectAnswers...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

type QuestionBankService struct {
	BankRepo    *repository.QuestionBankRepository
	Communities *CommunityService
	Storage     *StorageService
}

func NewQuestionBankService(bankRepo *repository.QuestionBankRepository, communities *CommunityService, storage *StorageService) *QuestionBankService {
	return &QuestionBankService{
		BankRepo:    bankRepo,
		Communities: communities,
		Storage:     storage,
	}
}

func (s *QuestionBankService) load(communityID, id uint) (*model.CommunityQuestion, error) {
	q, err := s.BankRepo.FindByID(communityID, id)
	if repository.IsNotFound(err) {
		return nil, util.ErrQuestionNotFound
	}
	return q, err
}

// List applies every filter together.
func (s *QuestionBankService) List(userID, communityID uint, f BankFilter) ([]model.CommunityQuestion, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	rows, err := s.BankRepo.List(communityID, strings.TrimSpace(f.Category), strings.ToLower(strings.TrimSpace(f.Difficulty)))
	if err != nil {
		return nil, err
	}
	search := strings.TrimSpace(f.Search)
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	out := rows[:0]
	for i := range rows {
		q := &rows[i]
		if !matchesSearch(q, search) {
			continue
		}
		if tag != "" && !slices.Contains([]string(q.Tags), tag) {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (s *QuestionBankService) Create(userID, communityID uint, in QuestionInput) (*model.CommunityQuestion, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	snap, err := in.snapshot()
	if err != nil {
		return nil, err
	}
	q := &model.CommunityQuestion{CommunityID: communityID, CreatedBy: userID}
	q.Apply(snap)
	if err := s.BankRepo.Create(q, userID); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionBankService) Update(userID, communityID, id uint, in QuestionInput) (*model.CommunityQuestion, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	snap, err := in.snapshot()
	if err != nil {
		return nil, err
	}
	q, err := s.load(communityID, id)
	if err != nil {
		return nil, err
	}
	q.Apply(snap)
	if err := s.BankRepo.Save(q, model.ChangeEdited, userID); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionBankService) Delete(userID, communityID, id uint) error {
	n, err := s.BulkDelete(userID, communityID, []uint{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return util.ErrQuestionNotFound
	}
	return nil
}

func (s *QuestionBankService) BulkDelete(userID, communityID uint, ids []uint) (int64, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.BankRepo.Delete(communityID, ids)
}

func (s *QuestionBankService) retag(q *model.CommunityQuestion, tag string, add bool) bool {
	tags := []string(q.Tags)
	has := slices.Contains(tags, tag)
	switch {
	case add && !has:
		tags = append(tags, tag)
	case !add && has:
		tags = slices.DeleteFunc(slices.Clone(tags), func(t string) bool { return t == tag })
	default:
		return false
	}
	q.Tags = datatypes.NewJSONSlice(tags)
	return true
}

func cleanTag(tag string) (string, error) {
	tags := NormalizeTags([]string{tag})
	if len(tags) == 0 {
		return "", util.Invalid("tag must not be empty")
	}
	return tags[0], nil
}

func (s *QuestionBankService) AddTag(userID, communityID, id uint, tag string) (*model.CommunityQuestion, error) {
	return s.tagOne(userID, communityID, id, tag, true)
}

func (s *QuestionBankService) RemoveTag(userID, communityID, id uint, tag string) (*model.CommunityQuestion, error) {
	return s.tagOne(userID, communityID, id, tag, false)
}

func (s *QuestionBankService) tagOne(userID, communityID, id uint, tag string, add bool) (*model.CommunityQuestion, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	tag, err := cleanTag(tag)
	if err != nil {
		return nil, err
	}
	q, err := s.load(communityID, id)
	if err != nil {
		return nil, err
	}
	if s.retag(q, tag, add) {
		if err := s.BankRepo.Save(q, model.ChangeTagged, userID); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// BulkTag returns how many questions actually changed. A failure leaves every
// question as it was.
func (s *QuestionBankService) BulkTag(userID, communityID uint, ids []uint, tag string, add bool) (int, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return 0, err
	}
	tag, err := cleanTag(tag)
	if err != nil {
		return 0, err
	}
	qs, err := s.BankRepo.FindByIDs(communityID, ids)
	if err != nil {
		return 0, err
	}
	var changed []*model.CommunityQuestion
	for i := range qs {
		if s.retag(&qs[i], tag, add) {
			changed = append(changed, &qs[i])
		}
	}
	if err := s.BankRepo.SaveAll(changed, model.ChangeTagged, userID); err != nil {
		return 0, err
	}
	return len(changed), nil
}

func (s *QuestionBankService) History(userID, communityID, id uint) ([]model.QuestionVersion, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	if _, err := s.load(communityID, id); err != nil {
		return nil, err
	}
	return s.BankRepo.Versions(id)
}

// Restore reverts the content to a version and records that as a new entry.
func (s *QuestionBankService) Restore(userID, communityID, id, versionID uint) (*model.CommunityQuestion, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	q, err := s.load(communityID, id)
	if err != nil {
		return nil, err
	}
	v, err := s.BankRepo.FindVersion(id, versionID)
	if repository.IsNotFound(err) {
		return nil, util.ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	q.Apply(v.Snapshot.Data())
	if err := s.BankRepo.Save(q, model.ChangeRestored, userID); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionBankService) SaveTemplate(userID, communityID, questionID uint, name string) (*model.QuestionTemplate, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.Invalid("template name is required")
	}
	q, err := s.load(communityID, questionID)
	if err != nil {
		return nil, err
	}
	t := &model.QuestionTemplate{
		CommunityID: communityID,
		Name:        name,
		CreatedBy:   userID,
		Content:     datatypes.NewJSONType(q.Snapshot()),
	}
	if err := s.BankRepo.CreateTemplate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *QuestionBankService) ListTemplates(userID, communityID uint) ([]model.QuestionTemplate, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	return s.BankRepo.Templates(communityID)
}

func (s *QuestionBankService) CreateFromTemplate(userID, communityID, templateID uint) (*model.CommunityQuestion, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	t, err := s.BankRepo.FindTemplate(communityID, templateID)
	if repository.IsNotFound(err) {
		return nil, util.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	q := &model.CommunityQuestion{CommunityID: communityID, CreatedBy: userID}
	q.Apply(t.Content.Data())
	if err := s.BankRepo.Create(q, userID); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionBankService) DeleteTemplate(userID, communityID, templateID uint) error {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return err
	}
	n, err := s.BankRepo.DeleteTemplate(communityID, templateID)
	if err != nil {
		return err
	}
	if n == 0 {
		return util.ErrTemplateNotFound
	}
	return nil
}

func (s *QuestionBankService) ValidateImport(userID, communityID uint, filename string, data []byte) (*ImportReport, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	if _, err := util.SniffImportFile(filename, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return ParseImport(filename, data)
}

// CommitImport inserts the valid rows, archives the file and logs the import.
func (s *QuestionBankService) CommitImport(ctx context.Context, userID, communityID uint, filename string, data []byte) (*ImportResult, error) {
	report, err := s.ValidateImport(userID, communityID, filename, data)
	if err != nil {
		return nil, err
	}

	qs := make([]model.CommunityQuestion, 0, len(report.Valid))
	for _, snap := range report.Valid {
		q := model.CommunityQuestion{CommunityID: communityID, CreatedBy: userID}
		q.Apply(snap)
		qs = append(qs, q)
	}
	if err := s.BankRepo.CreateBatch(qs, userID); err != nil {
		return nil, fmt.Errorf("insert imported questions: %w", err)
	}
	monitoring.ImportRows.WithLabelValues("imported").Add(float64(len(qs)))
	monitoring.ImportRows.WithLabelValues("rejected").Add(float64(len(report.Errors)))

	result := &ImportResult{Report: report, Imported: len(qs)}
	if s.Storage != nil {
		url, err := s.Storage.ArchiveImport(ctx, communityID, filename, data)
		if err != nil {
			logger.Log.Warn("Import archive failed", zap.Uint("community_id", communityID), zap.Error(err))
		}
		result.FileURL = url
	}

	entry := &model.ImportLog{
		CommunityID:  communityID,
		UserID:       userID,
		FileName:     filename,
		FileURL:      result.FileURL,
		TotalRows:    report.TotalRows,
		ImportedRows: len(qs),
		FailedRows:   len(report.Errors),
	}
	if err := s.BankRepo.CreateImportLog(entry); err != nil {
		return nil, err
	}
	result.LogID = entry.ID
	logger.Log.Info("Question bank import",
		zap.Uint("community_id", communityID),
		zap.String("file", filename),
		zap.Int("imported", len(qs)),
		zap.Int("rejected", len(report.Errors)),
	)
	return result, nil
}

func (s *QuestionBankService) ImportLogs(userID, communityID uint) ([]model.ImportLog, error) {
	if _, err := s.Communities.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	return s.BankRepo.ImportLogs(communityID, 50)
}

type ExportFile struct {
	Name        string
	ContentType string
	Body        []byte
}

// Export writes the whole bank as csv or xlsx.
func (s *QuestionBankService) Export(userID, communityID uint, format string) (*ExportFile, error) {
	c, err := s.Communities.RequireCommissioner(communityID, userID)
	if err != nil {
		return nil, err
	}
	qs, err := s.BankRepo.List(communityID, "", "")
	if err != nil {
		return nil, err
	}
	stamp := time.Now().UTC().Format(util.DateFormat)
	var buf bytes.Buffer
	switch format {
	case "xlsx":
		if err := WriteXLSX(&buf, qs); err != nil {
			return nil, err
		}
		return &ExportFile{Name: fmt.Sprintf("%s-questions-%s.xlsx", c.Slug, stamp), ContentType: util.MimeXLSX, Body: buf.Bytes()}, nil
	default:
		if err := WriteCSV(&buf, qs); err != nil {
			return nil, err
		}
		return &ExportFile{Name: fmt.Sprintf("%s-questions-%s.csv", c.Slug, stamp), ContentType: util.MimeCSV, Body: buf.Bytes()}, nil
	}
}
