package notification

import (
	"context"
	"time"

	"github.com/eta/backend/internal/infrastructure/task"
	"github.com/google/uuid"
)

// Task names
const (
	OrderConfirmationTask    = "order.send_confirmation"
	RegistrationEmailTask    = "customer.send_registration_email"
	PasswordResetEmailTask   = "customer.send_password_reset_email"
	PasswordChangedEmailTask = "customer.send_password_changed_email"
)

// OrderConfirmationPayload is the payload of OrderConfirmationTask
type OrderConfirmationPayload struct {
	OrderNumber string `json:"order_number" validate:"required"`
}

// AccountEmailPayload is the payload of the customer email tasks
type AccountEmailPayload struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// RetryConfig bounds the retries of the email tasks
type RetryConfig struct {
	// OrderConfirmationMaxRetries defaults to 0: a transient failure of the
	// confirmation email fails the task without a retry.
	OrderConfirmationMaxRetries int
	CustomerEmailMaxRetries     int
	BackoffBase                 time.Duration
}

// DefaultRetryConfig returns the default retry bounds
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		OrderConfirmationMaxRetries: 0,
		CustomerEmailMaxRetries:     3,
		BackoffBase:                 60 * time.Second,
	}
}

// RegisterTasks adds the email tasks backed by d to registry
func RegisterTasks(registry *task.Registry, d *Dispatcher, cfg RetryConfig) error {
	backoff := task.Power{Base: cfg.BackoffBase}
	if cfg.BackoffBase <= 0 {
		backoff.Base = 60 * time.Second
	}

	defs := []task.Definition{
		{
			Name:        OrderConfirmationTask,
			Description: "Email the order placed confirmation",
			Handler: task.Typed(func(ctx context.Context, inv *task.Invocation, p OrderConfirmationPayload) error {
				_, err := d.SendOrderConfirmation(ctx, inv, p.OrderNumber)
				return err
			}),
			Retry: task.RetryPolicy{MaxRetries: cfg.OrderConfirmationMaxRetries, Backoff: backoff},
		},
		accountEmailTask(RegistrationEmailTask, "Email the registration welcome", CodeRegistration, d, cfg, backoff),
		accountEmailTask(PasswordResetEmailTask, "Email the password reset notice", CodePasswordReset, d, cfg, backoff),
		accountEmailTask(PasswordChangedEmailTask, "Email the password changed notice", CodePasswordChanged, d, cfg, backoff),
	}
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func accountEmailTask(name, description, code string, d *Dispatcher, cfg RetryConfig, backoff task.Backoff) task.Definition {
	return task.Definition{
		Name:        name,
		Description: description,
		Handler: task.Typed(func(ctx context.Context, inv *task.Invocation, p AccountEmailPayload) error {
			_, err := d.SendAccountEmail(ctx, inv, code, p.UserID)
			return err
		}),
		Retry: task.RetryPolicy{MaxRetries: cfg.CustomerEmailMaxRetries, Backoff: backoff},
	}
}
