package service

import (
	"context"
	"strings"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/util"
)

// UserSettings is the editable part of a profile. Nil fields are left unchanged.
type UserSettings struct {
	Username              *string `json:"username"`
	ProfileVisibility     *bool   `json:"profile_visibility"`
	LeaderboardVisibility *bool   `json:"leaderboard_visibility"`
}

type SettingsView struct {
	Username              string `json:"username"`
	Email                 string `json:"email"`
	ProfileVisibility     bool   `json:"profile_visibility"`
	LeaderboardVisibility bool   `json:"leaderboard_visibility"`
}

func settingsOf(u *model.User) *SettingsView {
	return &SettingsView{
		Username:              u.Username,
		Email:                 u.Email,
		ProfileVisibility:     u.ProfileVisibility,
		LeaderboardVisibility: u.LeaderboardVisibility,
	}
}

type UserService struct {
	UserRepo *repository.UserRepository
	Games    *GameService
}

func NewUserService(userRepo *repository.UserRepository, games *GameService) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Games:    games,
	}
}

func (s *UserService) load(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if repository.IsNotFound(err) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetSettings(userID uint) (*SettingsView, error) {
	user, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return settingsOf(user), nil
}

func (s *UserService) UpdateSettings(ctx context.Context, userID uint, in UserSettings) (*SettingsView, error) {
	user, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name != user.Username {
			if err := validateUsername(name); err != nil {
				return nil, err
			}
			taken, err := s.UserRepo.UsernameTaken(name, userID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, util.ErrUsernameTaken
			}
			user.Username = name
		}
	}
	leaderboardChanged := false
	if in.ProfileVisibility != nil {
		user.ProfileVisibility = *in.ProfileVisibility
	}
	if in.LeaderboardVisibility != nil && *in.LeaderboardVisibility != user.LeaderboardVisibility {
		user.LeaderboardVisibility = *in.LeaderboardVisibility
		leaderboardChanged = true
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	if (leaderboardChanged || in.Username != nil) && s.Games != nil {
		s.Games.InvalidateLeaderboard(ctx)
	}
	return settingsOf(user), nil
}
