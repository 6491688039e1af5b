package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// DefaultForumCategories are created on first start.
var DefaultForumCategories = []models.ForumCategory{
	{Name: "Course Discussion", Description: "Concepts, lectures and exercises of the course", Icon: "book", Order: 1, IsActive: true},
	{Name: "Assignment Help", Description: "Questions about assignments and their answers", Icon: "pencil", Order: 2, IsActive: true},
	{Name: "R Programming", Description: "R tips, code sharing and troubleshooting", Icon: "code", Order: 3, IsActive: true},
	{Name: "Statistical Software", Description: "SPSS, SAS, Python and other tools", Icon: "wrench", Order: 4, IsActive: true},
	{Name: "Learning Resources", Description: "Books, notes and useful links", Icon: "library", Order: 5, IsActive: true},
	{Name: "Exam Review", Description: "Revision material for midterms and finals", Icon: "note", Order: 6, IsActive: true},
	{Name: "Applications", Description: "Biostatistics in real research", Icon: "microscope", Order: 7, IsActive: true},
	{Name: "Off Topic", Description: "Everything else", Icon: "chat", Order: 8, IsActive: true},
}

// DefaultMajorClasses are the cohorts students can register into.
var DefaultMajorClasses = []models.MajorClass{
	{Name: "bio_elite", Description: "Biological sciences top talent program"},
	{Name: "bio_base", Description: "National biology base class"},
	{Name: "biotech_base", Description: "National life science and technology base class"},
	{Name: "bio_science", Description: "Biological sciences"},
	{Name: "bio_technology", Description: "Biotechnology"},
}

// SeedService inserts the reference data the portal needs to operate.
type SeedService interface {
	Defaults(ctx context.Context) (dto.SeedResponse, error)
	Seed(ctx context.Context, token string, req dto.SeedRequest) (dto.SeedResponse, error)
}

type seedService struct {
	forum     repository.ForumRepository
	majors    repository.MajorClassRepository
	validator *validator.Validate
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service. The token guarded endpoint is
// available only when enabled is set.
func NewSeedService(forum repository.ForumRepository, majors repository.MajorClassRepository, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		forum:     forum,
		majors:    majors,
		validator: validate,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

// Defaults idempotently creates the built-in categories and major classes.
func (s *seedService) Defaults(ctx context.Context) (dto.SeedResponse, error) {
	return s.apply(ctx, cloneCategories(DefaultForumCategories), cloneMajors(DefaultMajorClasses))
}

func (s *seedService) Seed(ctx context.Context, token string, req dto.SeedRequest) (dto.SeedResponse, error) {
	if !s.enabled {
		return dto.SeedResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.SeedResponse{}, ErrSeedUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.SeedResponse{}, err
	}

	categories := cloneCategories(DefaultForumCategories)
	if len(req.Categories) > 0 {
		categories = make([]models.ForumCategory, 0, len(req.Categories))
		for _, item := range req.Categories {
			categories = append(categories, models.ForumCategory{
				Name:        strings.TrimSpace(item.Name),
				Description: strings.TrimSpace(item.Description),
				Icon:        strings.TrimSpace(item.Icon),
				Order:       item.Order,
				IsActive:    true,
			})
		}
	}

	majors := cloneMajors(DefaultMajorClasses)
	if len(req.MajorClasses) > 0 {
		majors = make([]models.MajorClass, 0, len(req.MajorClasses))
		for _, item := range req.MajorClasses {
			majors = append(majors, models.MajorClass{
				Name:        strings.TrimSpace(item.Name),
				Description: strings.TrimSpace(item.Description),
			})
		}
	}

	return s.apply(ctx, categories, majors)
}

func (s *seedService) apply(ctx context.Context, categories []models.ForumCategory, majors []models.MajorClass) (dto.SeedResponse, error) {
	var result dto.SeedResponse

	affected, err := s.forum.UpsertCategories(ctx, categories)
	if err != nil {
		return dto.SeedResponse{}, err
	}
	result.Categories = affected

	affected, err = s.majors.UpsertBatch(ctx, majors)
	if err != nil {
		return dto.SeedResponse{}, err
	}
	result.MajorClasses = affected

	s.logger.Info().
		Int64("categories", result.Categories).
		Int64("major_classes", result.MajorClasses).
		Msg("reference data seeded")
	return result, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

func cloneCategories(items []models.ForumCategory) []models.ForumCategory {
	return append([]models.ForumCategory(nil), items...)
}

func cloneMajors(items []models.MajorClass) []models.MajorClass {
	return append([]models.MajorClass(nil), items...)
}
