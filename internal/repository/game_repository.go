package repository

import (
	"time"
	"trivia_backend/internal/model"

	"gorm.io/gorm"
)

type GameRepository struct {
	DB *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{DB: db}
}

// FeedFilter narrows the public feed. Empty fields match everything.
type FeedFilter struct {
	Category   string
	Difficulty string
	SortBy     string // recent | score
	Limit      int
	ViewerID   uint
}

type CategoryCount struct {
	Category string
	Total    int64
}

// Create stores the game and its answer log in one transaction.
func (r *GameRepository) Create(game *model.Game) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		answers := game.Answers
		game.Answers = nil
		if err := tx.Create(game).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].GameID = game.ID
		}
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return err
			}
		}
		game.Answers = answers
		return nil
	})
}

func (r *GameRepository) FindByID(id uint) (*model.Game, error) {
	var game model.Game
	err := r.DB.Preload("User").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		First(&game, id).Error
	return &game, err
}

func (r *GameRepository) UpdateVisibility(id uint, visibility model.Visibility) error {
	return r.DB.Model(&model.Game{}).Where("id = ?", id).Update("visibility", visibility).Error
}

// ListByUser returns the newest games first.
func (r *GameRepository) ListByUser(userID uint, limit int) ([]model.Game, error) {
	var games []model.Game
	q := r.DB.Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&games).Error
	return games, err
}

// History returns every game of the user in play order.
func (r *GameRepository) History(userID uint) ([]model.Game, error) {
	var games []model.Game
	err := r.DB.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&games).Error
	return games, err
}

func (r *GameRepository) PublicByUser(userID uint, limit int) ([]model.Game, error) {
	var games []model.Game
	err := r.DB.Where("user_id = ? AND visibility = ?", userID, model.VisibilityPublic).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&games).Error
	return games, err
}

func (r *GameRepository) PublicFeed(f FeedFilter) ([]model.Game, error) {
	var games []model.Game
	q := r.DB.Preload("User").
		Joins("JOIN users ON users.id = games.user_id AND users.deleted_at IS NULL").
		Where("games.visibility = ?", model.VisibilityPublic).
		Where("(users.profile_visibility = ? OR games.user_id = ?)", true, f.ViewerID)
	if f.Category != "" {
		q = q.Where("games.category = ?", f.Category)
	}
	if f.Difficulty != "" {
		q = q.Where("games.difficulty = ?", f.Difficulty)
	}
	if f.SortBy == "score" {
		q = q.Order("games.score DESC").Order("games.created_at DESC")
	} else {
		q = q.Order("games.created_at DESC").Order("games.id DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Find(&games).Error
	return games, err
}

// RecentPublic returns the latest public games with their players.
func (r *GameRepository) RecentPublic(limit int) ([]model.Game, error) {
	var games []model.Game
	err := r.DB.Preload("User").
		Where("visibility = ?", model.VisibilityPublic).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&games).Error
	return games, err
}

func (r *GameRepository) CommunityGames(communityID uint, from, to time.Time, userIDs []uint) ([]model.Game, error) {
	var games []model.Game
	if len(userIDs) == 0 {
		return games, nil
	}
	err := r.DB.Where("community_id = ? AND created_at BETWEEN ? AND ? AND user_id IN ?", communityID, from, to, userIDs).
		Find(&games).Error
	return games, err
}

func (r *GameRepository) CountByCommunity(communityID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Game{}).Where("community_id = ?", communityID).Count(&count).Error
	return count, err
}

func (r *GameRepository) CountPlayersByCommunity(communityID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Game{}).
		Where("community_id = ?", communityID).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

func (r *GameRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Game{}).Count(&count).Error
	return count, err
}

func (r *GameRepository) CountPublic() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Game{}).Where("visibility = ?", model.VisibilityPublic).Count(&count).Error
	return count, err
}

// MostPopularCategory returns ok=false when no games exist.
func (r *GameRepository) MostPopularCategory() (CategoryCount, bool, error) {
	var rows []CategoryCount
	err := r.DB.Model(&model.Game{}).
		Select("category, COUNT(*) AS total").
		Group("category").
		Order("total DESC").
		Order("category ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return CategoryCount{}, false, err
	}
	return rows[0], true, nil
}

func (r *GameRepository) Recent(limit int) ([]model.Game, error) {
	var games []model.Game
	err := r.DB.Preload("User").Order("created_at DESC, id DESC").Limit(limit).Find(&games).Error
	return games, err
}
