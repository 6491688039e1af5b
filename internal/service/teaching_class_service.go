package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

var (
	// ErrTeachingClassNotFound indicates the class does not exist.
	ErrTeachingClassNotFound = errors.New("teaching class not found")
	// ErrClassNameTaken indicates another class already uses the name.
	ErrClassNameTaken = errors.New("teaching class name already exists")
)

// TeachingClassService manages teaching classes and the registration choices.
type TeachingClassService interface {
	ListOpen(ctx context.Context) ([]dto.TeachingClassResponse, error)
	ListMajorClasses(ctx context.Context) ([]dto.MajorClassResponse, error)
	ListMine(ctx context.Context, actor Actor) ([]dto.TeachingClassResponse, error)
	Create(ctx context.Context, actor Actor, req dto.TeachingClassCreateRequest) (dto.TeachingClassResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uint, req dto.TeachingClassStatusRequest) (dto.TeachingClassResponse, error)
}

type teachingClassService struct {
	classes    repository.TeachingClassRepository
	majors     repository.MajorClassRepository
	activities ActivityRecorder
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewTeachingClassService constructs the teaching class service.
func NewTeachingClassService(classes repository.TeachingClassRepository, majors repository.MajorClassRepository, activities ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) TeachingClassService {
	return &teachingClassService{
		classes:    classes,
		majors:     majors,
		activities: activities,
		validator:  validate,
		logger:     logger.With().Str("component", "teaching_class_service").Logger(),
		now:        time.Now,
	}
}

func (s *teachingClassService) ListOpen(ctx context.Context) ([]dto.TeachingClassResponse, error) {
	classes, err := s.classes.ListByStatus(ctx, models.TeachingClassOpen)
	if err != nil {
		return nil, err
	}
	counts, err := s.classes.CountStudents(ctx, classIDs(classes))
	if err != nil {
		return nil, err
	}

	out := make([]dto.TeachingClassResponse, 0, len(classes))
	for _, class := range classes {
		if !class.CanRegister(counts[class.ID]) {
			continue
		}
		out = append(out, dto.NewTeachingClassResponse(class, counts[class.ID]))
	}
	return out, nil
}

func (s *teachingClassService) ListMajorClasses(ctx context.Context) ([]dto.MajorClassResponse, error) {
	items, err := s.majors.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewMajorClassResponseSlice(items), nil
}

// ListMine returns the teacher's classes after finishing any that have ended.
func (s *teachingClassService) ListMine(ctx context.Context, actor Actor) ([]dto.TeachingClassResponse, error) {
	if actor.Role != models.RoleTeacher {
		return nil, ErrForbidden
	}

	classes, err := s.classes.ListByCreator(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range classes {
		if !classes[i].FinishIfEnded(now) {
			continue
		}
		if err := s.classes.UpdateStatus(ctx, classes[i].ID, classes[i].Status); err != nil {
			return nil, err
		}
		s.logger.Info().Uint("teaching_class_id", classes[i].ID).Msg("teaching class finished")
	}

	counts, err := s.classes.CountStudents(ctx, classIDs(classes))
	if err != nil {
		return nil, err
	}

	out := make([]dto.TeachingClassResponse, 0, len(classes))
	for _, class := range classes {
		out = append(out, dto.NewTeachingClassResponse(class, counts[class.ID]))
	}
	return out, nil
}

func (s *teachingClassService) Create(ctx context.Context, actor Actor, req dto.TeachingClassCreateRequest) (dto.TeachingClassResponse, error) {
	if actor.Role != models.RoleTeacher {
		return dto.TeachingClassResponse{}, ErrForbidden
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return dto.TeachingClassResponse{}, err
	}

	start, err := time.Parse(dto.DateLayout, req.StartDate)
	if err != nil {
		return dto.TeachingClassResponse{}, fmt.Errorf("%w: start_date must use YYYY-MM-DD", ErrInvalidInput)
	}
	end, err := time.Parse(dto.DateLayout, req.EndDate)
	if err != nil {
		return dto.TeachingClassResponse{}, fmt.Errorf("%w: end_date must use YYYY-MM-DD", ErrInvalidInput)
	}
	if !start.Before(end) {
		return dto.TeachingClassResponse{}, fmt.Errorf("%w: start_date must be before end_date", ErrInvalidInput)
	}

	if taken, err := s.classes.NameExists(ctx, req.Name); err != nil {
		return dto.TeachingClassResponse{}, err
	} else if taken {
		return dto.TeachingClassResponse{}, ErrClassNameTaken
	}

	class := models.TeachingClass{
		Name:          req.Name,
		Description:   strings.TrimSpace(req.Description),
		ClassTime:     strings.TrimSpace(req.ClassTime),
		ClassLocation: strings.TrimSpace(req.ClassLocation),
		StartDate:     start,
		EndDate:       end,
		MaxStudents:   req.MaxStudents,
		Status:        models.TeachingClassOpen,
		CreatedBy:     actor.ID,
	}
	if class.MaxStudents <= 0 {
		class.MaxStudents = models.DefaultMaxStudents
	}

	if err := s.classes.Create(ctx, &class); err != nil {
		return dto.TeachingClassResponse{}, err
	}

	recordActivity(ctx, s.activities, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivityClassCreated,
		EntityType: "teaching_class",
		EntityID:   uintPtr(class.ID),
		Metadata:   map[string]interface{}{"name": class.Name, "max_students": class.MaxStudents},
	})

	return dto.NewTeachingClassResponse(class, 0), nil
}

func (s *teachingClassService) UpdateStatus(ctx context.Context, actor Actor, id uint, req dto.TeachingClassStatusRequest) (dto.TeachingClassResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TeachingClassResponse{}, err
	}

	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TeachingClassResponse{}, ErrTeachingClassNotFound
		}
		return dto.TeachingClassResponse{}, err
	}
	if actor.Role != models.RoleTeacher || !class.OwnedBy(actor.ID) {
		return dto.TeachingClassResponse{}, ErrForbidden
	}

	status := models.TeachingClassStatus(req.Status)
	if !status.Valid() {
		return dto.TeachingClassResponse{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}

	previous := class.Status
	if status != previous {
		if err := s.classes.UpdateStatus(ctx, class.ID, status); err != nil {
			return dto.TeachingClassResponse{}, err
		}
		class.Status = status
		recordActivity(ctx, s.activities, s.logger, ActivityEntry{
			Actor:      actor,
			Action:     models.ActivityClassStatusChanged,
			EntityType: "teaching_class",
			EntityID:   uintPtr(class.ID),
			Metadata:   map[string]interface{}{"from": string(previous), "to": string(status)},
		})
	}

	counts, err := s.classes.CountStudents(ctx, []uint{class.ID})
	if err != nil {
		return dto.TeachingClassResponse{}, err
	}
	return dto.NewTeachingClassResponse(class, counts[class.ID]), nil
}

func classIDs(classes []models.TeachingClass) []uint {
	ids := make([]uint, 0, len(classes))
	for _, class := range classes {
		ids = append(ids, class.ID)
	}
	return ids
}
