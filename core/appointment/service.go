package appointment

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/user"
)

var ErrNotFound = errors.New("appointment not found")

const defaultDuration = 30

type (
	Repository interface {
		CreateAppointment(ctx context.Context, appt Appointment) (Appointment, error)
		GetAppointment(ctx context.Context, id string) (Appointment, error)
		// QueryAppointments applies AND operation on available QueryFilter fields.
		QueryAppointments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Appointment, error)
		UpdateAppointment(ctx context.Context, appt Appointment) (Appointment, error)
	}

	Service interface {
		Create(ctx context.Context, usr user.User, na NewAppointment) (Appointment, error)
		GetByID(ctx context.Context, id string) (Appointment, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Appointment, error)
		// UpdateStatus applies an admin decision and emails the owner.
		UpdateStatus(ctx context.Context, appt Appointment, owner user.User, su StatusUpdate) (Appointment, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *service) Create(ctx context.Context, usr user.User, na NewAppointment) (Appointment, error) {
	now := NowFunc().UTC()
	appt := Appointment{
		UserID:      usr.ID,
		Topic:       na.Topic,
		Notes:       na.Notes,
		ScheduledAt: na.ScheduledAt.UTC(),
		Duration:    na.Duration,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if appt.Duration == 0 {
		appt.Duration = defaultDuration
	}

	appt, err := svc.repo.CreateAppointment(ctx, appt)
	if err != nil {
		return Appointment{}, errors.Wrap(err, "creating appointment")
	}
	svc.notify(usr, appt)
	return appt, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Appointment, error) {
	return svc.repo.GetAppointment(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Appointment, error) {
	filter.Clean()
	ordering = core.CleanOrderings(ordering, OrderingFields)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "scheduled_at", Ascending: true}}
	}
	return svc.repo.QueryAppointments(ctx, filter, ordering)
}

func (svc *service) UpdateStatus(ctx context.Context, appt Appointment, owner user.User, su StatusUpdate) (Appointment, error) {
	if !CanTransition(appt.Status, su.Status) {
		return Appointment{}, core.NewFieldError("status", "cannot change status from "+appt.Status+" to "+su.Status)
	}
	appt.Status = su.Status
	if su.AdminNotes != "" {
		appt.AdminNotes = su.AdminNotes
	}
	appt.UpdatedAt = NowFunc().UTC()

	appt, err := svc.repo.UpdateAppointment(ctx, appt)
	if err != nil {
		return Appointment{}, errors.Wrap(err, "updating appointment")
	}
	svc.notify(owner, appt)
	return appt, nil
}

func (svc *service) notify(usr user.User, appt Appointment) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Consultation " + appt.Status,
		TemplateName: "appointment_status",
		TemplateData: map[string]interface{}{
			"Name":    usr.DisplayName(),
			"Subject": appt.Topic,
			"When":    appt.ScheduledAt.Format("Mon, 02 Jan 2006 15:04 MST"),
			"Status":  appt.Status,
			"Notes":   appt.AdminNotes,
		},
	})
}
