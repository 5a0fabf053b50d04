package repository

import (
	"trivia_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionBankRepository struct {
	DB *gorm.DB
}

func NewQuestionBankRepository(db *gorm.DB) *QuestionBankRepository {
	return &QuestionBankRepository{DB: db}
}

func newVersion(q *model.CommunityQuestion, change model.VersionChange, userID uint) *model.QuestionVersion {
	return &model.QuestionVersion{
		QuestionID: q.ID,
		ChangeType: change,
		ChangedBy:  userID,
		Snapshot:   datatypes.NewJSONType(q.Snapshot()),
	}
}

// appendVersion records a snapshot and prunes the oldest beyond the cap.
func appendVersion(tx *gorm.DB, q *model.CommunityQuestion, change model.VersionChange, userID uint) error {
	if err := tx.Create(newVersion(q, change, userID)).Error; err != nil {
		return err
	}
	var keep []uint
	if err := tx.Model(&model.QuestionVersion{}).
		Where("question_id = ?", q.ID).
		Order("id DESC").
		Limit(model.MaxQuestionVersions).
		Pluck("id", &keep).Error; err != nil {
		return err
	}
	if len(keep) < model.MaxQuestionVersions {
		return nil
	}
	return tx.Where("question_id = ? AND id NOT IN ?", q.ID, keep).Delete(&model.QuestionVersion{}).Error
}

func (r *QuestionBankRepository) Create(q *model.CommunityQuestion, userID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		return appendVersion(tx, q, model.ChangeCreated, userID)
	})
}

// CreateBatch inserts imported rows, each with its initial version.
func (r *QuestionBankRepository) CreateBatch(qs []model.CommunityQuestion, userID uint) error {
	if len(qs) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&qs, 100).Error; err != nil {
			return err
		}
		versions := make([]model.QuestionVersion, 0, len(qs))
		for i := range qs {
			versions = append(versions, *newVersion(&qs[i], model.ChangeCreated, userID))
		}
		return tx.CreateInBatches(&versions, 100).Error
	})
}

// Save persists the content and records the change in history.
func (r *QuestionBankRepository) Save(q *model.CommunityQuestion, change model.VersionChange, userID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(q).Error; err != nil {
			return err
		}
		return appendVersion(tx, q, change, userID)
	})
}

// SaveAll persists every question in one transaction. Either all changes and
// their history land or none do.
func (r *QuestionBankRepository) SaveAll(qs []*model.CommunityQuestion, change model.VersionChange, userID uint) error {
	if len(qs) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for _, q := range qs {
			if err := tx.Save(q).Error; err != nil {
				return err
			}
			if err := appendVersion(tx, q, change, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *QuestionBankRepository) FindByID(communityID, id uint) (*model.CommunityQuestion, error) {
	var q model.CommunityQuestion
	err := r.DB.Where("community_id = ?", communityID).First(&q, id).Error
	return &q, err
}

func (r *QuestionBankRepository) FindByIDs(communityID uint, ids []uint) ([]model.CommunityQuestion, error) {
	var qs []model.CommunityQuestion
	err := r.DB.Where("community_id = ? AND id IN ?", communityID, ids).Find(&qs).Error
	return qs, err
}

// List applies the column filters. Text search and tags are matched by the caller.
func (r *QuestionBankRepository) List(communityID uint, category, difficulty string) ([]model.CommunityQuestion, error) {
	var qs []model.CommunityQuestion
	q := r.DB.Where("community_id = ?", communityID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	err := q.Order("created_at DESC, id DESC").Find(&qs).Error
	return qs, err
}

func (r *QuestionBankRepository) Count(communityID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CommunityQuestion{}).Where("community_id = ?", communityID).Count(&count).Error
	return count, err
}

func (r *QuestionBankRepository) Delete(communityID uint, ids []uint) (int64, error) {
	var affected int64
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("community_id = ? AND id IN ?", communityID, ids).Delete(&model.CommunityQuestion{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return tx.Where("question_id IN ?", ids).Delete(&model.QuestionVersion{}).Error
	})
	return affected, err
}

func (r *QuestionBankRepository) Versions(questionID uint) ([]model.QuestionVersion, error) {
	var versions []model.QuestionVersion
	err := r.DB.Where("question_id = ?", questionID).Order("id DESC").Find(&versions).Error
	return versions, err
}

func (r *QuestionBankRepository) FindVersion(questionID, versionID uint) (*model.QuestionVersion, error) {
	var v model.QuestionVersion
	err := r.DB.Where("question_id = ?", questionID).First(&v, versionID).Error
	return &v, err
}

func (r *QuestionBankRepository) CreateTemplate(t *model.QuestionTemplate) error {
	return r.DB.Create(t).Error
}

func (r *QuestionBankRepository) Templates(communityID uint) ([]model.QuestionTemplate, error) {
	var ts []model.QuestionTemplate
	err := r.DB.Where("community_id = ?", communityID).Order("created_at DESC").Find(&ts).Error
	return ts, err
}

func (r *QuestionBankRepository) FindTemplate(communityID, id uint) (*model.QuestionTemplate, error) {
	var t model.QuestionTemplate
	err := r.DB.Where("community_id = ?", communityID).First(&t, id).Error
	return &t, err
}

func (r *QuestionBankRepository) DeleteTemplate(communityID, id uint) (int64, error) {
	res := r.DB.Where("community_id = ? AND id = ?", communityID, id).Delete(&model.QuestionTemplate{})
	return res.RowsAffected, res.Error
}

func (r *QuestionBankRepository) CreateImportLog(l *model.ImportLog) error {
	return r.DB.Create(l).Error
}

func (r *QuestionBankRepository) ImportLogs(communityID uint, limit int) ([]model.ImportLog, error) {
	var logs []model.ImportLog
	err := r.DB.Where("community_id = ?", communityID).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// Pool returns up to limit candidates for a quiz. Empty filters are ignored.
func (r *QuestionBankRepository) Pool(communityID uint, category, difficulty string, limit int) ([]model.CommunityQuestion, error) {
	var qs []model.CommunityQuestion
	q := r.DB.Model(&model.CommunityQuestion{})
	if communityID != 0 {
		q = q.Where("community_id = ?", communityID)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	err := q.Order("id DESC").Limit(limit).Find(&qs).Error
	return qs, err
}
