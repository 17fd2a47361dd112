package mail

import (
	"context"
	"sync"

	"github.com/eta/backend/internal/domain/notification"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryMailer keeps sent messages in memory. Failures can be queued with
// FailNext to exercise retry paths.
type MemoryMailer struct {
	logger *zap.Logger

	mu       sync.Mutex
	sent     []notification.Message
	failures []error
	attempts int
}

// NewMemoryMailer creates a MemoryMailer
func NewMemoryMailer(log *zap.Logger) *MemoryMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemoryMailer{logger: logger.Component(log, "memory_mailer")}
}

var _ notification.Mailer = (*MemoryMailer)(nil)

// Send implements notification.Mailer
func (m *MemoryMailer) Send(ctx context.Context, msg notification.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++

	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return "", err
	}

	m.sent = append(m.sent, msg)
	id := uuid.NewString()
	logger.WithLogger(ctx, m.logger).Info("Mail captured",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("message_id", id),
	)
	return id, nil
}

// FailNext makes the next len(errs) sends fail with errs, in order
func (m *MemoryMailer) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// Sent returns a copy of the delivered messages
func (m *MemoryMailer) Sent() []notification.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Message(nil), m.sent...)
}

// Attempts returns how many times Send was called
func (m *MemoryMailer) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}
