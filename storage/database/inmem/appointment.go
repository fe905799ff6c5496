package inmemdb

import (
	"context"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/appointment"
)

type appointmentRepository struct {
	db *DB
}

var _ appointment.Repository = (*appointmentRepository)(nil)

func NewAppointmentRepository(db *DB) appointment.Repository {
	return &appointmentRepository{db: db}
}

func (repo *appointmentRepository) CreateAppointment(ctx context.Context, appt appointment.Appointment) (appointment.Appointment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	appt.ID = newID()
	repo.db.appointments.insert(appt.ID, appt)
	return appt, nil
}

func (repo *appointmentRepository) GetAppointment(ctx context.Context, id string) (appointment.Appointment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if appt, ok := repo.db.appointments.get(id); ok {
		return appt, nil
	}
	return appointment.Appointment{}, appointment.ErrNotFound
}

func (repo *appointmentRepository) QueryAppointments(ctx context.Context, filter appointment.QueryFilter, ordering []core.DBOrdering) ([]appointment.Appointment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.appointments.filter(func(appt appointment.Appointment) bool {
		if filter.UserID != "" && appt.UserID != filter.UserID {
			return false
		}
		if filter.Status != "" && appt.Status != filter.Status {
			return false
		}
		return inTimeRange(appt.ScheduledAt, filter.DateFrom, filter.DateTo)
	})
	orderRows(list, ordering, func(i, j int, field string) int {
		a, b := list[i], list[j]
		switch field {
		case "status":
			return compareStrings(a.Status, b.Status)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return compareTimes(a.ScheduledAt, b.ScheduledAt)
	})
	return list, nil
}

func (repo *appointmentRepository) UpdateAppointment(ctx context.Context, appt appointment.Appointment) (appointment.Appointment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.appointments.set(appt.ID, appt) {
		return appointment.Appointment{}, appointment.ErrNotFound
	}
	return appt, nil
}
