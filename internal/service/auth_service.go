package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrStudentNumberTaken indicates the student number is already registered.
	ErrStudentNumberTaken = errors.New("student number already exists")
	// ErrMajorClassNotFound indicates the chosen major class does not exist.
	ErrMajorClassNotFound = errors.New("major class not found")
	// ErrTeachingClassUnavailable indicates the class is missing, full or not open.
	ErrTeachingClassUnavailable = errors.New("teaching class is not open for registration")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// TokenConfig configures access token issuance.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// AuthService handles registration, login and account profiles.
type AuthService interface {
	RegisterStudent(ctx context.Context, req dto.RegisterStudentRequest) (dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	Me(ctx context.Context, userID uint) (dto.UserResponse, error)
	CreateTeacher(ctx context.Context, actor Actor, req dto.AdminTeacherCreateRequest) (dto.UserResponse, error)
}

type authService struct {
	users      repository.UserRepository
	majors     repository.MajorClassRepository
	activities ActivityRecorder
	tokens     TokenConfig
	validator  *validator.Validate
	logger     zerolog.Logger
	hashCost   int
	now        func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(users repository.UserRepository, majors repository.MajorClassRepository, activities ActivityRecorder, tokens TokenConfig, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:      users,
		majors:     majors,
		activities: activities,
		tokens:     tokens,
		validator:  validate,
		logger:     logger.With().Str("component", "auth_service").Logger(),
		hashCost:   bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (s *authService) RegisterStudent(ctx context.Context, req dto.RegisterStudentRequest) (dto.UserResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	if _, err := s.majors.GetByID(ctx, req.MajorClassID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrMajorClassNotFound
		}
		return dto.UserResponse{}, err
	}

	if taken, err := s.users.UsernameExists(ctx, req.Username); err != nil {
		return dto.UserResponse{}, err
	} else if taken {
		return dto.UserResponse{}, ErrUsernameTaken
	}
	if taken, err := s.users.StudentNumberExists(ctx, req.StudentNumber); err != nil {
		return dto.UserResponse{}, err
	} else if taken {
		return dto.UserResponse{}, ErrStudentNumberTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	majorID := req.MajorClassID
	classID := req.TeachingClassID
	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		RealName:     strings.TrimSpace(req.RealName),
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		StudentProfile: &models.StudentProfile{
			Gender:          req.Gender,
			StudentNumber:   req.StudentNumber,
			Grade:           req.Grade,
			MajorClassID:    &majorID,
			TeachingClassID: &classID,
		},
	}

	class, err := s.users.CreateStudent(ctx, &user)
	if err != nil {
		if errors.Is(err, repository.ErrTeachingClassUnavailable) || errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrTeachingClassUnavailable
		}
		return dto.UserResponse{}, err
	}
	if class.Status == models.TeachingClassInProgress {
		s.logger.Info().Uint("teaching_class_id", class.ID).Msg("teaching class is full and now in progress")
	}

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(created), nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	token, expiresAt, err := middleware.IssueToken(s.tokens.Secret, user.ID, user.Role, s.tokens.TTL, s.now())
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        dto.NewUserResponse(user),
	}, nil
}

func (s *authService) Me(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *authService) CreateTeacher(ctx context.Context, actor Actor, req dto.AdminTeacherCreateRequest) (dto.UserResponse, error) {
	if actor.Role != models.RoleAdmin {
		return dto.UserResponse{}, ErrForbidden
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	if taken, err := s.users.UsernameExists(ctx, req.Username); err != nil {
		return dto.UserResponse{}, err
	} else if taken {
		return dto.UserResponse{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		RealName:     strings.TrimSpace(req.RealName),
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		TeacherProfile: &models.TeacherProfile{
			Title:             req.Title,
			Degree:            req.Degree,
			Major:             req.Major,
			ResearchDirection: req.ResearchDirection,
			Bio:               req.Bio,
		},
	}
	if err := s.users.CreateTeacher(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	recordActivity(ctx, s.activities, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivityTeacherCreated,
		EntityType: "user",
		EntityID:   uintPtr(user.ID),
		Metadata:   map[string]interface{}{"username": user.Username},
	})

	return dto.NewUserResponse(user), nil
}
