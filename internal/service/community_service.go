package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/util"
	"trivia_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	inviteCodeLength     = 8
	inviteCodeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeAttempts   = 5
	defaultSeasonLength  = 30 * 24 * time.Hour
	defaultMaxMembers    = 50
	maxMembersCeiling    = 200
	communityBoardSize   = 10
	dashboardImportLimit = 10
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and collapses every run of other characters into "-".
func Slugify(name string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
}

func newInviteCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

type MemberView struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type CommunityDetail struct {
	model.Community
	CommissionerName string             `json:"commissioner_name"`
	IsCommissioner   bool               `json:"is_commissioner"`
	Members          []MemberView       `json:"members"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
	QuestionCount    int64              `json:"question_count"`
}

type CommissionerDashboard struct {
	TotalGames    int64             `json:"total_games"`
	TotalMembers  int64             `json:"total_members"`
	ActivePlayers int64             `json:"active_players"`
	QuestionCount int64             `json:"question_count"`
	RecentImports []model.ImportLog `json:"recent_imports"`
}

type CommunitySettings struct {
	Name        string    `json:"name"`
	SeasonStart time.Time `json:"season_start"`
	SeasonEnd   time.Time `json:"season_end"`
	MaxMembers  int       `json:"max_members"`
}

type CommunityService struct {
	CommunityRepo *repository.CommunityRepository
	GameRepo      *repository.GameRepository
	BankRepo      *repository.QuestionBankRepository
	Notifier      Notifier
	now           func() time.Time
}

func NewCommunityService(
	communityRepo *repository.CommunityRepository,
	gameRepo *repository.GameRepository,
	bankRepo *repository.QuestionBankRepository,
	notifier Notifier,
) *CommunityService {
	return &CommunityService{
		CommunityRepo: communityRepo,
		GameRepo:      gameRepo,
		BankRepo:      bankRepo,
		Notifier:      notifier,
		now:           time.Now,
	}
}

func (s *CommunityService) find(id uint) (*model.Community, error) {
	c, err := s.CommunityRepo.FindByID(id)
	if repository.IsNotFound(err) {
		return nil, util.ErrCommunityNotFound
	}
	return c, err
}

// RequireCommissioner loads the community and checks the caller runs it.
func (s *CommunityService) RequireCommissioner(communityID, userID uint) (*model.Community, error) {
	c, err := s.find(communityID)
	if err != nil {
		return nil, err
	}
	if c.CommissionerID != userID {
		return nil, util.ErrNotCommissioner
	}
	return c, nil
}

func (s *CommunityService) Create(userID uint, name string) (*model.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.Invalid("community name is required")
	}

	code, err := s.uniqueInviteCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	c := &model.Community{
		Name:           name,
		Slug:           Slugify(name),
		CommissionerID: userID,
		InviteCode:     code,
		SeasonStart:    now,
		SeasonEnd:      now.Add(defaultSeasonLength),
		MaxMembers:     defaultMaxMembers,
	}
	c.CreatedAt = now
	if err := s.CommunityRepo.Create(c); err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}
	logger.Log.Info("Community created", zap.Uint("community_id", c.ID), zap.Uint("commissioner_id", userID))
	return c, nil
}

func (s *CommunityService) uniqueInviteCode() (string, error) {
	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := newInviteCode()
		if err != nil {
			return "", err
		}
		taken, err := s.CommunityRepo.InviteCodeExists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate an invite code")
}

func (s *CommunityService) Join(userID uint, inviteCode string) (*model.Community, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, util.ErrInvalidInviteCode
	}
	c, err := s.CommunityRepo.FindByInviteCode(code)
	if repository.IsNotFound(err) {
		return nil, util.ErrInvalidInviteCode
	}
	if err != nil {
		return nil, err
	}
	if err := s.CommunityRepo.AddMember(&model.CommunityMember{
		CommunityID: c.ID,
		UserID:      userID,
		JoinedAt:    s.now(),
	}, c.MaxMembers); err != nil {
		return nil, err
	}
	s.pushMemberEvent(c.ID, EventMemberJoined, userID)
	return c, nil
}

func (s *CommunityService) Leave(userID, communityID uint) error {
	c, err := s.find(communityID)
	if err != nil {
		return err
	}
	if c.CommissionerID == userID {
		return util.ErrCommissionerLeave
	}
	if err := s.CommunityRepo.RemoveMember(communityID, userID); err != nil {
		return err
	}
	s.pushMemberEvent(communityID, EventMemberRemoved, userID)
	return nil
}

func (s *CommunityService) ListMine(userID uint) ([]model.Community, error) {
	return s.CommunityRepo.ListByUser(userID)
}

// Detail is visible to members only.
func (s *CommunityService) Detail(userID, communityID uint) (*CommunityDetail, error) {
	c, err := s.find(communityID)
	if err != nil {
		return nil, err
	}
	member, err := s.CommunityRepo.IsMember(communityID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, util.ErrNotMember
	}

	members, err := s.CommunityRepo.Members(communityID)
	if err != nil {
		return nil, err
	}
	board, err := s.leaderboard(c)
	if err != nil {
		return nil, err
	}
	count, err := s.BankRepo.Count(communityID)
	if err != nil {
		return nil, err
	}

	d := &CommunityDetail{
		Community:      *c,
		IsCommissioner: c.CommissionerID == userID,
		Members:        make([]MemberView, 0, len(members)),
		Leaderboard:    board,
		QuestionCount:  count,
	}
	if c.Commissioner != nil {
		d.CommissionerName = c.Commissioner.Username
	}
	for _, m := range members {
		mv := MemberView{UserID: m.UserID, JoinedAt: m.JoinedAt}
		if m.User != nil {
			mv.Username = m.User.Username
		}
		d.Members = append(d.Members, mv)
	}
	return d, nil
}

func (s *CommunityService) Leaderboard(userID, communityID uint) ([]LeaderboardEntry, error) {
	c, err := s.find(communityID)
	if err != nil {
		return nil, err
	}
	member, err := s.CommunityRepo.IsMember(communityID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, util.ErrNotMember
	}
	return s.leaderboard(c)
}

// leaderboard ranks current members on community games played this season.
func (s *CommunityService) leaderboard(c *model.Community) ([]LeaderboardEntry, error) {
	members, err := s.CommunityRepo.Members(c.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(members))
	names := make(map[uint]string, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
		if m.User != nil {
			names[m.UserID] = m.User.Username
		}
	}
	games, err := s.GameRepo.CommunityGames(c.ID, c.SeasonStart, c.SeasonEnd, ids)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint]*LeaderboardEntry)
	for i := range games {
		g := &games[i]
		e, ok := byUser[g.UserID]
		if !ok {
			e = &LeaderboardEntry{UserID: g.UserID, Username: names[g.UserID]}
			byUser[g.UserID] = e
		}
		e.Games++
		e.TotalScore += g.Score
		e.TotalQuestions += g.TotalQuestions
	}
	out := make([]LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		e.AveragePercent = util.Percent(e.TotalScore, e.TotalQuestions)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AveragePercent != out[j].AveragePercent {
			return out[i].AveragePercent > out[j].AveragePercent
		}
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > communityBoardSize {
		out = out[:communityBoardSize]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (s *CommunityService) Dashboard(userID, communityID uint) (*CommissionerDashboard, error) {
	if _, err := s.RequireCommissioner(communityID, userID); err != nil {
		return nil, err
	}
	var (
		d   CommissionerDashboard
		err error
	)
	if d.TotalGames, err = s.GameRepo.CountByCommunity(communityID); err != nil {
		return nil, err
	}
	if d.TotalMembers, err = s.CommunityRepo.CountMembers(communityID); err != nil {
		return nil, err
	}
	if d.ActivePlayers, err = s.GameRepo.CountPlayersByCommunity(communityID); err != nil {
		return nil, err
	}
	if d.QuestionCount, err = s.BankRepo.Count(communityID); err != nil {
		return nil, err
	}
	if d.RecentImports, err = s.BankRepo.ImportLogs(communityID, dashboardImportLimit); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateSettings never touches the invite code.
func (s *CommunityService) UpdateSettings(userID, communityID uint, in CommunitySettings) (*model.Community, error) {
	c, err := s.RequireCommissioner(communityID, userID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, util.Invalid("community name is required")
	}
	if in.MaxMembers < 1 || in.MaxMembers > maxMembersCeiling {
		return nil, util.Invalid("max_members must be between 1 and %d", maxMembersCeiling)
	}
	if in.SeasonEnd.Before(in.SeasonStart) {
		return nil, util.Invalid("season end must not be before season start")
	}
	c.Name = name
	c.Slug = Slugify(name)
	c.SeasonStart = in.SeasonStart
	c.SeasonEnd = in.SeasonEnd
	c.MaxMembers = in.MaxMembers
	if err := s.CommunityRepo.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveMember keeps the removed player's games.
func (s *CommunityService) RemoveMember(userID, communityID, memberID uint) error {
	c, err := s.RequireCommissioner(communityID, userID)
	if err != nil {
		return err
	}
	if memberID == c.CommissionerID {
		return util.ErrCommissionerLeave
	}
	if err := s.CommunityRepo.RemoveMember(communityID, memberID); err != nil {
		return err
	}
	logger.Log.Info("Community member removed",
		zap.Uint("community_id", communityID),
		zap.Uint("member_id", memberID),
	)
	notify(s.Notifier, []uint{memberID}, LiveMessage{Type: EventMemberRemoved, Data: map[string]uint{
		"community_id": communityID,
		"user_id":      memberID,
	}})
	s.pushMemberEvent(communityID, EventMemberRemoved, memberID)
	return nil
}

func (s *CommunityService) pushMemberEvent(communityID uint, event string, subjectID uint) {
	ids, err := s.CommunityRepo.MemberIDs(communityID)
	if err != nil {
		logger.Log.Warn("Member event skipped", zap.String("event", event), zap.Error(err))
		return
	}
	targets := ids[:0]
	for _, id := range ids {
		if id != subjectID {
			targets = append(targets, id)
		}
	}
	notify(s.Notifier, targets, LiveMessage{Type: event, Data: map[string]uint{
		"community_id": communityID,
		"user_id":      subjectID,
	}})
}
