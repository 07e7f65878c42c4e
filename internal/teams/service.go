package teams

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// ServiceConfig describes the dependencies required for membership resolution.
type ServiceConfig struct {
	Database *gorm.DB
}

// Service resolves team membership for access decisions. Membership is
// managed out of band, so positive lookups are cached in process.
type Service struct {
	db    *gorm.DB
	cache sync.Map
}

// NewService constructs the membership service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("teams: database connection required")
	}
	return &Service{db: cfg.Database}, nil
}

// IsMember reports whether the user belongs to the team.
func (s *Service) IsMember(ctx context.Context, userID, teamID int64) (bool, error) {
	if userID <= 0 || teamID <= 0 {
		return false, nil
	}

	cacheKey := fmt.Sprintf("%d:%d", teamID, userID)
	if _, ok := s.cache.Load(cacheKey); ok {
		return true, nil
	}

	var membership Membership
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&membership).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.cache.Store(cacheKey, struct{}{})
	return true, nil
}

// TeamForUser returns the id of the user's team, or nil when the user
// belongs to none.
func (s *Service) TeamForUser(ctx context.Context, userID int64) (*int64, error) {
	if userID <= 0 {
		return nil, nil
	}

	var membership Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("joined_at ASC").
		First(&membership).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	teamID := membership.TeamID
	return &teamID, nil
}
