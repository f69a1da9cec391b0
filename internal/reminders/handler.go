package reminders

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ledgerkeep/billing-console/pkg/common"
)

// Handler handles HTTP requests for the reminder queue
type Handler struct {
	queue *Queue
}

// NewHandler creates a new reminder handler
func NewHandler(queue *Queue) *Handler {
	return &Handler{queue: queue}
}

// ListReminders returns all pending reminders
// GET /api/v1/reminders
func (h *Handler) ListReminders(c *gin.Context) {
	common.SuccessResponse(c, h.queue.List())
}

// RunNow drains all currently due reminders
// POST /api/v1/reminders/run
func (h *Handler) RunNow(c *gin.Context) {
	fired := h.queue.ProcessDue(time.Now().UTC())
	common.SuccessResponse(c, gin.H{
		"processed": len(fired),
		"reminders": fired,
	})
}
