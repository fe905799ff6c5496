package appointment

import (
	"time"

	"github.com/darpanintel/darpan/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	Statuses = []string{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

	// allowed status changes: pending -> confirmed -> completed, any non-final -> cancelled
	transitions = map[string][]string{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
	}
)

// CanTransition reports whether an appointment in status `from` may move to `to`.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsFinal reports whether no further status change is allowed.
func IsFinal(status string) bool {
	return len(transitions[status]) == 0
}

type Appointment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Topic       string    `json:"topic"`
	Notes       string    `json:"notes"`
	AdminNotes  string    `json:"admin_notes"`
	ScheduledAt time.Time `json:"scheduled_at"` // UTC
	Duration    int       `json:"duration"`     // minutes
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAppointment is the booking request of a student.
type NewAppointment struct {
	Topic       string    `json:"topic" validate:"required,max=255"`
	Notes       string    `json:"notes" validate:"max=2000"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required,future"`
	Duration    int       `json:"duration" validate:"omitempty,oneof=15 30 45 60"`
}

func (na *NewAppointment) Validate() error {
	na.Topic = core.CleanString(na.Topic)
	na.Notes = core.CleanString(na.Notes)
	return core.Validate.Struct(na)
}

// StatusUpdate is an admin decision on an appointment.
type StatusUpdate struct {
	Status     string `json:"status" validate:"required,appointment_status"`
	AdminNotes string `json:"admin_notes" validate:"max=2000"`
}

func (su *StatusUpdate) Validate() error {
	su.Status = core.CleanString(su.Status, true /* lower */)
	su.AdminNotes = core.CleanString(su.AdminNotes)
	return core.Validate.Struct(su)
}

type QueryFilter struct {
	UserID   string    `query:"user_id"`
	Status   string    `query:"status"`
	DateFrom time.Time `query:"date_from"`
	DateTo   time.Time `query:"date_to"`
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

var OrderingFields = map[string]string{
	"scheduled_at": "scheduled_at",
	"status":       "status",
	"created_at":   "created_at",
}
