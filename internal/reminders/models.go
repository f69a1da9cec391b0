package reminders

import "time"

// ReminderType classifies when and why a reminder fires
type ReminderType string

const (
	TypeUpcomingDue       ReminderType = "UPCOMING_DUE"
	TypeOverdueCheck      ReminderType = "OVERDUE_CHECK"
	TypeMilestoneUpcoming ReminderType = "MILESTONE_UPCOMING"
	TypeMilestoneOverdue  ReminderType = "MILESTONE_OVERDUE"
)

// Reminder is a scheduled notification tied to an invoice
type Reminder struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"createdAt"`
	InvoiceID  string        `json:"invoiceId"`
	CustomerID string        `json:"customerId,omitempty"`
	LocationID string        `json:"locationId,omitempty"`
	Type       ReminderType  `json:"type"`
	RunAt      time.Time     `json:"runAt"`
	Message    string        `json:"message"`
	Milestone  *MilestoneRef `json:"milestone,omitempty"`
	Attempts   int           `json:"attempts"`
}

// MilestoneRef references the milestone a reminder belongs to
type MilestoneRef struct {
	Label  string `json:"label"`
	Amount string `json:"amount,omitempty"`
}

// Milestone is a partial-payment checkpoint on an invoice
type Milestone struct {
	Label   string `json:"label"`
	Amount  string `json:"amount,omitempty"`
	DueDate string `json:"dueDate"`
}

// Invoice is the subset of an invoice webhook payload needed to schedule
// due-date reminders.
type Invoice struct {
	ID               string           `json:"id"`
	InvoiceNumber    string           `json:"invoice_number,omitempty"`
	LocationID       string           `json:"location_id,omitempty"`
	PrimaryRecipient *Recipient       `json:"primary_recipient,omitempty"`
	PaymentRequests  []PaymentRequest `json:"payment_requests,omitempty"`
}

// Recipient identifies the customer billed by an invoice
type Recipient struct {
	CustomerID string `json:"customer_id,omitempty"`
}

// PaymentRequest is a single payment request on an invoice
type PaymentRequest struct {
	RequestType string `json:"request_type,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}
