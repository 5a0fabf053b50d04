package repository

import (
	"errors"
	"trivia_backend/internal/model"
	"trivia_backend/internal/util"

	"gorm.io/gorm"
)

type CommunityRepository struct {
	DB *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{DB: db}
}

// Create inserts the community and its commissioner as the first member.
func (r *CommunityRepository) Create(community *model.Community) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		return tx.Create(&model.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.CommissionerID,
			JoinedAt:    community.CreatedAt,
		}).Error
	})
}

func (r *CommunityRepository) FindByID(id uint) (*model.Community, error) {
	var community model.Community
	err := r.DB.Preload("Commissioner").First(&community, id).Error
	return &community, err
}

func (r *CommunityRepository) FindByInviteCode(code string) (*model.Community, error) {
	var community model.Community
	err := r.DB.Where("invite_code = ?", code).First(&community).Error
	return &community, err
}

func (r *CommunityRepository) InviteCodeExists(code string) (bool, error) {
	var count int64
	err := r.DB.Unscoped().Model(&model.Community{}).Where("invite_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *CommunityRepository) Update(community *model.Community) error {
	return r.DB.Model(community).Select("name", "slug", "season_start", "season_end", "max_members").Updates(community).Error
}

// AddMember checks capacity and membership inside one transaction.
func (r *CommunityRepository) AddMember(member *model.CommunityMember, maxMembers int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.CommunityMember{}).
			Where("community_id = ? AND user_id = ?", member.CommunityID, member.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return util.ErrAlreadyMember
		}

		var count int64
		if err := tx.Model(&model.CommunityMember{}).
			Where("community_id = ?", member.CommunityID).
			Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= maxMembers {
			return util.ErrCommunityFull
		}
		return tx.Create(member).Error
	})
}

func (r *CommunityRepository) RemoveMember(communityID, userID uint) error {
	res := r.DB.Where("community_id = ? AND user_id = ?", communityID, userID).Delete(&model.CommunityMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrNotMember
	}
	return nil
}

func (r *CommunityRepository) IsMember(communityID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *CommunityRepository) CountMembers(communityID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CommunityMember{}).Where("community_id = ?", communityID).Count(&count).Error
	return count, err
}

// Members returns the roster ordered by join date.
func (r *CommunityRepository) Members(communityID uint) ([]model.CommunityMember, error) {
	var members []model.CommunityMember
	err := r.DB.Preload("User").
		Where("community_id = ?", communityID).
		Order("joined_at ASC, id ASC").
		Find(&members).Error
	return members, err
}

func (r *CommunityRepository) MemberIDs(communityID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.CommunityMember{}).Where("community_id = ?", communityID).Pluck("user_id", &ids).Error
	return ids, err
}

func (r *CommunityRepository) ListByUser(userID uint) ([]model.Community, error) {
	var communities []model.Community
	err := r.DB.Joins("JOIN community_members ON community_members.community_id = communities.id").
		Where("community_members.user_id = ?", userID).
		Order("community_members.joined_at DESC").
		Find(&communities).Error
	return communities, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
