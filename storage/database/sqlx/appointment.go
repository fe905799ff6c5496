package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/appointment"
)

const appointmentTable = "appointments"

var appointmentColumns = []string{
	"id", "user_id", "topic", "notes", "admin_notes", "scheduled_at", "duration", "status", "created_at", "updated_at",
}

type appointmentRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Topic       string    `db:"topic"`
	Notes       string    `db:"notes"`
	AdminNotes  string    `db:"admin_notes"`
	ScheduledAt time.Time `db:"scheduled_at"`
	Duration    int       `db:"duration"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r appointmentRow) appointment() appointment.Appointment {
	return appointment.Appointment(r)
}

type appointmentRepository struct {
	exec core.DBExecutor
}

var _ appointment.Repository = (*appointmentRepository)(nil)

func NewAppointmentRepository(exec core.DBExecutor) appointment.Repository {
	return &appointmentRepository{exec: exec}
}

func (repo appointmentRepository) CreateAppointment(ctx context.Context, appt appointment.Appointment) (appointment.Appointment, error) {
	appt.ID = uuid.New().String()
	_, err := execStmt(ctx, repo.exec, psql.Insert(appointmentTable).SetMap(map[string]interface{}{
		"id":           appt.ID,
		"user_id":      appt.UserID,
		"topic":        appt.Topic,
		"notes":        appt.Notes,
		"admin_notes":  appt.AdminNotes,
		"scheduled_at": appt.ScheduledAt.UTC(),
		"duration":     appt.Duration,
		"status":       appt.Status,
		"created_at":   appt.CreatedAt.UTC(),
		"updated_at":   appt.UpdatedAt.UTC(),
	}))
	if err != nil {
		return appointment.Appointment{}, errors.Wrap(err, "inserting appointment")
	}
	return appt, nil
}

func (repo appointmentRepository) GetAppointment(ctx context.Context, id string) (appointment.Appointment, error) {
	if !isUUID(id) {
		return appointment.Appointment{}, appointment.ErrNotFound
	}
	var row appointmentRow
	b := psql.Select(appointmentColumns...).From(appointmentTable).Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.exec, &row, b); err != nil {
		return appointment.Appointment{}, trapNoRowsErr(err, appointment.ErrNotFound, "finding appointment")
	}
	return row.appointment(), nil
}

func (repo appointmentRepository) QueryAppointments(ctx context.Context, filter appointment.QueryFilter, ordering []core.DBOrdering) ([]appointment.Appointment, error) {
	b := psql.Select(appointmentColumns...).From(appointmentTable)
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return []appointment.Appointment{}, nil
		}
		b = b.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": filter.Status})
	}
	if !filter.DateFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"scheduled_at": filter.DateFrom.UTC()})
	}
	if !filter.DateTo.IsZero() {
		b = b.Where(sq.LtOrEq{"scheduled_at": filter.DateTo.UTC()})
	}

	var rows []appointmentRow
	if err := selectRows(ctx, repo.exec, &rows, orderBy(b, ordering)); err != nil {
		return nil, errors.Wrap(err, "querying appointments")
	}
	list := make([]appointment.Appointment, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.appointment())
	}
	return list, nil
}

func (repo appointmentRepository) UpdateAppointment(ctx context.Context, appt appointment.Appointment) (appointment.Appointment, error) {
	if !isUUID(appt.ID) {
		return appointment.Appointment{}, appointment.ErrNotFound
	}
	stmt := psql.Update(appointmentTable).SetMap(map[string]interface{}{
		"topic":        appt.Topic,
		"notes":        appt.Notes,
		"admin_notes":  appt.AdminNotes,
		"scheduled_at": appt.ScheduledAt.UTC(),
		"duration":     appt.Duration,
		"status":       appt.Status,
		"updated_at":   appt.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": appt.ID})

	n, err := execStmt(ctx, repo.exec, stmt)
	if err != nil {
		return appointment.Appointment{}, errors.Wrap(err, "updating appointment")
	}
	if n == 0 {
		return appointment.Appointment{}, appointment.ErrNotFound
	}
	return appt, nil
}
