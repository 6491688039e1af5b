package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

// DashboardInvalidator drops cached dashboard counters. Services that change
// a counter call it for every affected user.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uint)
}

// DashboardService produces the per-role counters of the landing page.
type DashboardService interface {
	DashboardInvalidator
	Get(ctx context.Context, actor Actor) (dto.DashboardResponse, error)
}

type dashboardService struct {
	assignments   repository.AssignmentRepository
	forum         repository.ForumRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	cache         *redis.Client
	cacheTTL      time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewDashboardService builds the dashboard aggregator. cache may be nil.
func NewDashboardService(assignments repository.AssignmentRepository, forum repository.ForumRepository, users repository.UserRepository, notifications repository.NotificationRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		assignments:   assignments,
		forum:         forum,
		users:         users,
		notifications: notifications,
		cache:         cache,
		cacheTTL:      ttl,
		logger:        logger.With().Str("component", "dashboard_service").Logger(),
		now:           time.Now,
	}
}

func dashboardCacheKey(userID uint) string {
	return fmt.Sprintf("dashboard:user:%d", userID)
}

func (s *dashboardService) Get(ctx context.Context, actor Actor) (dto.DashboardResponse, error) {
	cacheKey := dashboardCacheKey(actor.ID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.DashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("user_id", actor.ID).Msg("dashboard cache hit")
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	response, err := s.build(ctx, actor)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached counters so the next Get recomputes them.
func (s *dashboardService) Invalidate(ctx context.Context, userIDs ...uint) {
	if s.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != 0 {
			keys = append(keys, dashboardCacheKey(id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Int("users", len(keys)).Msg("failed to invalidate dashboard cache")
	}
}

func invalidateDashboards(ctx context.Context, dashboards DashboardInvalidator, userIDs ...uint) {
	if dashboards == nil {
		return
	}
	dashboards.Invalidate(ctx, userIDs...)
}

func (s *dashboardService) build(ctx context.Context, actor Actor) (dto.DashboardResponse, error) {
	now := s.now()
	response := dto.DashboardResponse{Role: string(actor.Role), GeneratedAt: now.UTC()}

	switch actor.Role {
	case models.RoleStudent:
		classID, err := studentClassID(ctx, s.users, actor.ID)
		if err != nil {
			return dto.DashboardResponse{}, err
		}
		if classID != nil {
			pending, err := s.assignments.CountPendingForStudent(ctx, actor.ID, *classID, now)
			if err != nil {
				return dto.DashboardResponse{}, err
			}
			response.PendingAssignments = pending
		}
		unread, err := s.forum.SumUnreadReplies(ctx, actor.ID)
		if err != nil {
			return dto.DashboardResponse{}, err
		}
		response.UnreadReplies = unread
	case models.RoleTeacher:
		private, err := s.forum.CountUnrepliedTeacherOnly(ctx, actor.ID)
		if err != nil {
			return dto.DashboardResponse{}, err
		}
		response.UnreadPrivateMessages = private
	}

	if s.notifications != nil {
		unread, err := s.notifications.CountUnread(ctx, actor.ID)
		if err != nil {
			return dto.DashboardResponse{}, err
		}
		response.UnreadNotifications = unread
	}
	return response, nil
}
