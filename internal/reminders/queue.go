package reminders

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerkeep/billing-console/pkg/logger"
)

// dueDateLayout is the date format used on invoice payment requests
const dueDateLayout = "2006-01-02"

// Queue is a file-backed reminder queue. Reminders are deduplicated by
// (invoice ID, type): scheduling a reminder for a pair that already exists
// replaces the earlier entry.
type Queue struct {
	path string

	mu        sync.Mutex
	reminders []Reminder
}

// NewQueue creates a reminder queue backed by the file at path
func NewQueue(path string) *Queue {
	return &Queue{path: path}
}

// Open loads the queue file. A missing or corrupt file leaves the queue
// empty; it is never a fatal condition.
func (q *Queue) Open() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("Failed to load reminder queue",
			zap.String("path", q.path),
			zap.Error(err),
		)
		return nil
	}

	var reminders []Reminder
	if err := json.Unmarshal(raw, &reminders); err != nil {
		logger.Warn("Failed to parse reminder queue",
			zap.String("path", q.path),
			zap.Error(err),
		)
		return nil
	}
	q.reminders = reminders

	return nil
}

// Schedule adds a reminder, replacing any existing reminder with the same
// invoice ID and type.
func (q *Queue) Schedule(reminder Reminder) Reminder {
	q.mu.Lock()
	defer q.mu.Unlock()

	reminder.ID = uuid.New().String()
	reminder.CreatedAt = time.Now().UTC()

	replaced := false
	for i, existing := range q.reminders {
		if existing.InvoiceID == reminder.InvoiceID && existing.Type == reminder.Type {
			q.reminders[i] = reminder
			replaced = true
			break
		}
	}
	if !replaced {
		q.reminders = append(q.reminders, reminder)
	}
	q.persistLocked()

	if replaced {
		logger.Info("Updated reminder",
			zap.String("type", string(reminder.Type)),
			zap.String("invoice_id", reminder.InvoiceID),
		)
	} else {
		logger.Info("Scheduled reminder",
			zap.String("type", string(reminder.Type)),
			zap.String("invoice_id", reminder.InvoiceID),
		)
	}

	return reminder
}

// ScheduleFromInvoice schedules due-date reminders for an invoice: one the
// day before the balance payment is due and an overdue check the day after.
// Invoices without a dated payment request are ignored.
func (q *Queue) ScheduleFromInvoice(invoice *Invoice) {
	if invoice == nil || len(invoice.PaymentRequests) == 0 {
		return
	}

	request := invoice.PaymentRequests[0]
	for _, candidate := range invoice.PaymentRequests {
		if candidate.RequestType == "BALANCE" {
			request = candidate
			break
		}
	}
	if request.DueDate == "" {
		return
	}

	dueDate, err := time.Parse(dueDateLayout, request.DueDate)
	if err != nil {
		logger.Warn("Invoice payment request has an invalid due date",
			zap.String("invoice_id", invoice.ID),
			zap.String("due_date", request.DueDate),
		)
		return
	}

	label := invoice.InvoiceNumber
	if label == "" {
		label = invoice.ID
	}

	q.Schedule(Reminder{
		InvoiceID:  invoice.ID,
		CustomerID: invoice.customerID(),
		LocationID: invoice.LocationID,
		Type:       TypeUpcomingDue,
		RunAt:      dueDate.AddDate(0, 0, -1),
		Message:    "Invoice " + label + " is due soon.",
	})

	q.Schedule(Reminder{
		InvoiceID:  invoice.ID,
		CustomerID: invoice.customerID(),
		LocationID: invoice.LocationID,
		Type:       TypeOverdueCheck,
		RunAt:      dueDate.AddDate(0, 0, 1),
		Message:    "Invoice " + label + " is overdue.",
	})
}

// ScheduleMilestones schedules upcoming and overdue reminders for each
// dated milestone on an invoice.
func (q *Queue) ScheduleMilestones(invoice *Invoice, milestones []Milestone) {
	if invoice == nil {
		return
	}

	for _, milestone := range milestones {
		if milestone.DueDate == "" {
			continue
		}
		dueDate, err := time.Parse(dueDateLayout, milestone.DueDate)
		if err != nil {
			continue
		}

		ref := &MilestoneRef{Label: milestone.Label, Amount: milestone.Amount}

		q.Schedule(Reminder{
			InvoiceID:  invoice.ID,
			CustomerID: invoice.customerID(),
			LocationID: invoice.LocationID,
			Type:       TypeMilestoneUpcoming,
			RunAt:      dueDate.AddDate(0, 0, -1),
			Message:    milestone.Label + " milestone is due soon.",
			Milestone:  ref,
		})

		q.Schedule(Reminder{
			InvoiceID:  invoice.ID,
			CustomerID: invoice.customerID(),
			LocationID: invoice.LocationID,
			Type:       TypeMilestoneOverdue,
			RunAt:      dueDate.AddDate(0, 0, 1),
			Message:    milestone.Label + " milestone is overdue.",
			Milestone:  ref,
		})
	}
}

// List returns all pending reminders
func (q *Queue) List() []Reminder {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Reminder, len(q.reminders))
	copy(out, q.reminders)
	return out
}

// ProcessDue drains every reminder whose run time has passed and returns
// the reminders that fired.
func (q *Queue) ProcessDue(now time.Time) []Reminder {
	q.mu.Lock()
	defer q.mu.Unlock()

	var fired []Reminder
	var remaining []Reminder

	for _, reminder := range q.reminders {
		if !reminder.RunAt.After(now) {
			fired = append(fired, reminder)
			logger.Info("Sending reminder",
				zap.String("type", string(reminder.Type)),
				zap.String("invoice_id", reminder.InvoiceID),
			)
		} else {
			remaining = append(remaining, reminder)
		}
	}

	if len(fired) > 0 {
		q.reminders = remaining
		q.persistLocked()
	}

	return fired
}

// persistLocked writes the queue file. Callers must hold q.mu.
func (q *Queue) persistLocked() {
	reminders := q.reminders
	if reminders == nil {
		reminders = []Reminder{}
	}

	payload, err := json.MarshalIndent(reminders, "", "  ")
	if err != nil {
		logger.Warn("Failed to encode reminder queue", zap.Error(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		logger.Warn("Failed to create reminder queue directory",
			zap.String("path", q.path),
			zap.Error(err),
		)
		return
	}

	if err := os.WriteFile(q.path, payload, 0o644); err != nil {
		logger.Warn("Failed to persist reminder queue",
			zap.String("path", q.path),
			zap.Error(err),
		)
	}
}

func (inv *Invoice) customerID() string {
	if inv.PrimaryRecipient == nil {
		return ""
	}
	return inv.PrimaryRecipient.CustomerID
}
