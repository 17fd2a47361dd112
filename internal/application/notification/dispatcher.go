// Package notification sends order confirmation and account emails from
// background tasks, retrying transient mail transport failures.
package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/eta/backend/internal/domain/customer"
	"github.com/eta/backend/internal/domain/notification"
	"github.com/eta/backend/internal/domain/order"
	"github.com/eta/backend/internal/domain/shared"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/task"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned when an order or user has no email address
var ErrNoRecipient = shared.NewDomainError("NO_RECIPIENT", "No email address to send to")

// OrderContext is the data the order confirmation templates render
type OrderContext struct {
	User  Recipient
	Order *order.Order
	Lines []order.Line
}

// AccountContext is the data the account email templates render
type AccountContext struct {
	User Recipient
}

// Dispatcher renders and sends notification emails.
// A transient transport failure is handed to the retrier; everything else is
// returned to the caller unchanged.
type Dispatcher struct {
	orders    order.Repository
	users     customer.Repository
	mailer    notification.Mailer
	templates *Templates
	logger    *zap.Logger
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(
	orders order.Repository,
	users customer.Repository,
	mailer notification.Mailer,
	templates *Templates,
	log *zap.Logger,
) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		orders:    orders,
		users:     users,
		mailer:    mailer,
		templates: templates,
		logger:    logger.Component(log, "dispatcher"),
	}
}

// SendOrderConfirmation emails the order placed confirmation for orderNumber.
// A missing order fails with order.ErrOrderNotFound and is never retried.
func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, retrier task.Retrier, orderNumber string) (notification.Result, error) {
	result := notification.Result{
		Request: notification.Request{Key: orderNumber, RetryCount: retrier.Attempt()},
		State:   notification.StatePending,
	}
	log := logger.WithLogger(ctx, d.logger).With(zap.String("order_number", orderNumber))
	log.Info("Create order confirmation email", zap.Int("attempt", retrier.Attempt()))

	o, err := d.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			log.Error("Order confirmation failed", zap.Error(err))
		}
		return fail(result, err)
	}

	recipient := Recipient{Email: o.Recipient()}
	if o.Customer != nil {
		recipient.FullName = o.Customer.FullName()
	}
	if recipient.Email == "" {
		log.Error("Order confirmation failed", zap.Error(ErrNoRecipient))
		return fail(result, ErrNoRecipient)
	}
	result.Request.Recipient = recipient.Email

	msg, err := d.templates.Render(CodeOrderPlaced, recipient.Email, OrderContext{
		User:  recipient,
		Order: o,
		Lines: o.Lines,
	})
	if err != nil {
		return fail(result, err)
	}
	return d.send(ctx, log, retrier, result, msg)
}

// SendAccountEmail emails the account template code to the user with userID
func (d *Dispatcher) SendAccountEmail(ctx context.Context, retrier task.Retrier, code string, userID uuid.UUID) (notification.Result, error) {
	result := notification.Result{
		Request: notification.Request{Key: userID.String(), RetryCount: retrier.Attempt()},
		State:   notification.StatePending,
	}
	log := logger.WithLogger(ctx, d.logger).With(
		zap.String("user_id", userID.String()),
		zap.String("email", code),
	)
	log.Info("Create account email", zap.Int("attempt", retrier.Attempt()))

	user, err := d.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, customer.ErrUserNotFound) {
			log.Error("Account email failed", zap.Error(err))
		}
		return fail(result, err)
	}
	if user.Email == "" {
		return fail(result, ErrNoRecipient)
	}
	result.Request.Recipient = user.Email

	recipient := Recipient{Email: user.Email, FullName: fullName(user)}
	msg, err := d.templates.Render(code, user.Email, AccountContext{User: recipient})
	if err != nil {
		return fail(result, err)
	}
	return d.send(ctx, log, retrier, result, msg)
}

// send moves result through Sending to Sent, RetryScheduled or Failed
func (d *Dispatcher) send(
	ctx context.Context,
	log *logger.ContextLogger,
	retrier task.Retrier,
	result notification.Result,
	msg notification.Message,
) (notification.Result, error) {
	result.State = notification.StateSending

	id, err := d.mailer.Send(ctx, msg)
	if err == nil {
		result.State = notification.StateSent
		result.MessageID = id
		log.Info("Email sent", zap.String("message_id", id))
		return result, nil
	}

	if !notification.IsTransient(err) {
		log.Error("Email send failed", zap.Error(err))
		return fail(result, err)
	}

	log.Error("Email send failed, retrying", zap.Error(err))
	retryErr := retrier.Retry(ctx, err)

	var scheduled *task.RetryScheduledError
	if errors.As(retryErr, &scheduled) {
		result.State = notification.StateRetryScheduled
		result.RetryDelay = scheduled.Delay
		result.Err = retryErr
		return result, retryErr
	}
	if errors.Is(retryErr, task.ErrMaxRetriesExceeded) {
		log.Error("Email retries exhausted", zap.Int("retries", retrier.Attempt()))
	}
	return fail(result, retryErr)
}

func fail(result notification.Result, err error) (notification.Result, error) {
	result.State = notification.StateFailed
	result.Err = err
	return result, err
}

func fullName(u *customer.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
