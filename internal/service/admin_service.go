package service

import (
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/util"
)

const adminRecentLimit = 10

type PopularCategory struct {
	Category string `json:"category"`
	Plays    int64  `json:"plays"`
}

type AdminUserView struct {
	ID        uint           `json:"id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Role      model.UserRole `json:"role"`
	CreatedAt string         `json:"created_at"`
}

type AdminDashboard struct {
	TotalUsers         int64                  `json:"total_users"`
	TotalGames         int64                  `json:"total_games"`
	PublicGames        int64                  `json:"public_games"`
	AvgGamesPerUser    float64                `json:"avg_games_per_user"`
	MostPopular        PopularCategory        `json:"most_popular_category"`
	RecentUsers        []AdminUserView        `json:"recent_users"`
	RecentGames        []GameSummary          `json:"recent_games"`
	PendingSubmissions []model.CustomQuestion `json:"pending_questions"`
}

type AdminService struct {
	UserRepo   *repository.UserRepository
	GameRepo   *repository.GameRepository
	CustomRepo *repository.CustomQuestionRepository
}

func NewAdminService(
	userRepo *repository.UserRepository,
	gameRepo *repository.GameRepository,
	customRepo *repository.CustomQuestionRepository,
) *AdminService {
	return &AdminService{
		UserRepo:   userRepo,
		GameRepo:   gameRepo,
		CustomRepo: customRepo,
	}
}

func (s *AdminService) Dashboard() (*AdminDashboard, error) {
	d := &AdminDashboard{MostPopular: PopularCategory{Category: "N/A"}}
	var err error

	if d.TotalUsers, err = s.UserRepo.Count(); err != nil {
		return nil, err
	}
	if d.TotalGames, err = s.GameRepo.Count(); err != nil {
		return nil, err
	}
	if d.PublicGames, err = s.GameRepo.CountPublic(); err != nil {
		return nil, err
	}
	if d.TotalUsers > 0 {
		d.AvgGamesPerUser = util.RoundTo(float64(d.TotalGames)/float64(d.TotalUsers), 1)
	}

	top, ok, err := s.GameRepo.MostPopularCategory()
	if err != nil {
		return nil, err
	}
	if ok {
		d.MostPopular = PopularCategory{Category: top.Category, Plays: top.Total}
	}

	users, err := s.UserRepo.Recent(adminRecentLimit)
	if err != nil {
		return nil, err
	}
	d.RecentUsers = make([]AdminUserView, 0, len(users))
	for _, u := range users {
		d.RecentUsers = append(d.RecentUsers, AdminUserView{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt.UTC().Format(util.TimeFormat),
		})
	}

	games, err := s.GameRepo.Recent(adminRecentLimit)
	if err != nil {
		return nil, err
	}
	d.RecentGames = summarizeAll(games)

	if d.PendingSubmissions, err = s.CustomRepo.ListByStatus(model.StatusPending); err != nil {
		return nil, err
	}
	return d, nil
}
