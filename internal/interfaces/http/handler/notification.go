package handler

import (
	"context"
	"strings"

	"github.com/eta/backend/internal/application/notification"
	"github.com/eta/backend/internal/infrastructure/task"
	"github.com/eta/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskEnqueuer queues a registered task for the tenant scope active on ctx
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, name string, payload any) (*task.Task, error)
}

// accountEmailTasks maps the email kind path segment to its task
var accountEmailTasks = map[string]string{
	"registration":     notification.RegistrationEmailTask,
	"password_reset":   notification.PasswordResetEmailTask,
	"password_changed": notification.PasswordChangedEmailTask,
}

// NotificationHandler queues notification emails. It runs behind the tenant
// scope middleware, so queued tasks carry the request's tenant.
type NotificationHandler struct {
	BaseHandler
	queue TaskEnqueuer
}

// NewNotificationHandler creates a NotificationHandler
func NewNotificationHandler(queue TaskEnqueuer) *NotificationHandler {
	return &NotificationHandler{queue: queue}
}

// SendOrderConfirmation handles POST /orders/:number/confirmation by queueing
// the confirmation email for the tenant on the request
func (h *NotificationHandler) SendOrderConfirmation(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		h.BadRequest(c, "Order number is required")
		return
	}

	t, err := h.queue.Enqueue(c.Request.Context(), notification.OrderConfirmationTask,
		notification.OrderConfirmationPayload{OrderNumber: number})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, dto.OrderConfirmationResponse{
		EnqueuedTaskResponse: enqueued(t),
		OrderNumber:          number,
	})
}

// SendAccountEmail handles POST /customers/:id/emails/:kind where kind is
// registration, password_reset or password_changed
func (h *NotificationHandler) SendAccountEmail(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	name, ok := accountEmailTasks[c.Param("kind")]
	if !ok {
		h.BadRequest(c, "Unknown account email kind")
		return
	}

	t, err := h.queue.Enqueue(c.Request.Context(), name, notification.AccountEmailPayload{UserID: userID})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, enqueued(t))
}

func enqueued(t *task.Task) dto.EnqueuedTaskResponse {
	return dto.EnqueuedTaskResponse{
		TaskID:       t.ID.String(),
		Task:         t.Name,
		TenantSchema: t.TenantSchema,
	}
}
