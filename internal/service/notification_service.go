package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const notificationCapacity = 50

// NotificationLevel distinguishes success toasts from error toasts.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification is one dashboard toast.
type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	MockMode  bool              `json:"mockMode"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NotificationService keeps the most recent notifications in memory, newest first.
type NotificationService struct {
	mu     sync.RWMutex
	items  []Notification
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService constructs the sink.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger, now: time.Now}
}

// Success records a success toast. mockMode marks results produced without the authority.
func (s *NotificationService) Success(title, message string, mockMode bool) {
	s.push(NotificationSuccess, title, message, mockMode)
	s.logger.Sugar().Infow("notification", "level", NotificationSuccess, "title", title, "message", message, "mock_mode", mockMode)
}

// Error records an error toast.
func (s *NotificationService) Error(title, message string, mockMode bool) {
	s.push(NotificationError, title, message, mockMode)
	s.logger.Sugar().Warnw("notification", "level", NotificationError, "title", title, "message", message, "mock_mode", mockMode)
}

func (s *NotificationService) push(level NotificationLevel, title, message string, mockMode bool) {
	item := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		MockMode:  mockMode,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Notification{item}, s.items...)
	if len(s.items) > notificationCapacity {
		s.items = s.items[:notificationCapacity]
	}
}

// List returns the retained notifications, newest first.
func (s *NotificationService) List() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Notification{}, s.items...)
}
