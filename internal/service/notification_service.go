package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/observability"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

const notificationBufferSize = 16

// ErrNotificationNotFound indicates the notification does not exist for the user.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationMessage is a notification addressed to one user.
type NotificationMessage struct {
	UserID   uint
	Type     string
	Message  string
	Metadata map[string]interface{}
}

// Notifier delivers notifications. Other services depend on this narrow view.
type Notifier interface {
	Notify(ctx context.Context, messages ...NotificationMessage) error
}

// NotificationService persists notifications and streams them to connected users.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo         repository.NotificationRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	dashboards   DashboardInvalidator
	logger       zerolog.Logger
	tracer       trace.Tracer
	sanitizer    *bluemonday.Policy
	broker       *notificationBroker
	nodeID       string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service. Redis and NATS are
// optional; without them notifications only reach subscribers on this node.
// When both are set, NATS carries the fan-out and Redis is not used for it.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, dashboards DashboardInvalidator, logger zerolog.Logger) NotificationService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:         repo,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		dashboards:   dashboards,
		logger:       logger.With().Str("component", "notification_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/course-portal-api/internal/service/notification"),
		sanitizer:    bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *notificationService) useNATS() bool {
	return s.nats != nil && s.natsSubject != ""
}

func (s *notificationService) useRedis() bool {
	return !s.useNATS() && s.redis != nil && s.redisChannel != ""
}

func (s *notificationService) Start(ctx context.Context) {
	switch {
	case s.useNATS():
		s.consumeNATS(ctx)
	case s.useRedis():
		go s.consumeRedis(ctx)
	}
}

func (s *notificationService) Notify(ctx context.Context, messages ...NotificationMessage) error {
	spanCtx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(
		attribute.Int("notification.count", len(messages)),
	))
	defer span.End()

	batch := make([]models.Notification, 0, len(messages))
	for _, msg := range messages {
		if msg.UserID == 0 {
			continue
		}
		clean := strings.TrimSpace(s.sanitizer.Sanitize(msg.Message))
		if clean == "" {
			continue
		}
		kind := strings.TrimSpace(msg.Type)
		if kind == "" {
			kind = "generic"
		}
		batch = append(batch, models.Notification{
			UserID:   msg.UserID,
			Type:     kind,
			Message:  clean,
			Metadata: datatypes.JSONMap(msg.Metadata),
		})
	}
	if len(batch) == 0 {
		return nil
	}

	if err := s.repo.CreateBatch(spanCtx, batch); err != nil {
		span.RecordError(err)
		return err
	}

	recipients := make([]uint, 0, len(batch))
	for _, model := range batch {
		recipients = append(recipients, model.UserID)
	}
	invalidateDashboards(spanCtx, s.dashboards, recipients...)

	for _, model := range batch {
		response := dto.NewNotificationResponse(model)
		s.broker.broadcast(response.UserID, response)
		if err := s.publish(spanCtx, response); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", response.UserID).Msg("failed to publish notification to broker")
		}
		observability.NotificationsPublished().WithLabelValues(response.Type).Inc()
	}

	return nil
}

func (s *notificationService) List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	if userID == 0 {
		return nil, ErrForbidden
	}

	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	invalidateDashboards(spanCtx, s.dashboards, userID)
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.SSEClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
			observability.SSEClients().Dec()
		})
	}

	return channel, cleanup
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	switch {
	case s.useNATS():
		return s.nats.Publish(s.natsSubject, payload)
	case s.useRedis():
		return s.redis.Publish(ctx, s.redisChannel, payload).Err()
	default:
		return nil
	}
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}
	if err := s.nats.Flush(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to flush nats notification subscription")
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	notification := event.Notification
	if notification.UserID == 0 {
		return
	}
	if notification.Type == "" {
		notification.Type = "generic"
	}

	s.broker.broadcast(notification.UserID, notification)
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

// broadcast drops the message for subscribers whose buffer is full.
func (b *notificationBroker) broadcast(userID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}
