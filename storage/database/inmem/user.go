package inmemdb

import (
	"context"
	"strings"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/appointment"
	"github.com/darpanintel/darpan/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.db.users.filter(nil) {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = newID()
	repo.db.users.insert(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var keep func(user.User) bool
	if filter != nil && !filter.IsEmpty() {
		keep = func(usr user.User) bool { return matchUser(usr, filter) }
	}
	users := repo.db.users.filter(keep)
	orderRows(users, ordering, func(i, j int, field string) int {
		a, b := users[i], users[j]
		switch field {
		case "name":
			return compareStrings(a.Name, b.Name)
		case "username":
			return compareStrings(a.Username, b.Username)
		case "email":
			return compareStrings(a.Email, b.Email)
		case "is_active":
			return compareBools(a.IsActive, b.IsActive)
		case "updated_at":
			return compareTimes(a.UpdatedAt, b.UpdatedAt)
		case "last_login":
			return compareTimes(a.LastLogin, b.LastLogin)
		}
		return compareTimes(a.CreatedAt, b.CreatedAt)
	})
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" &&
		!containsFold(usr.Name, filter.Search) &&
		!containsFold(usr.Username, filter.Search) &&
		!containsFold(usr.Email, filter.Search) {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if len(filter.Roles) > 0 {
		var ok bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return inTimeRange(usr.CreatedAt, filter.CreatedFrom, filter.CreatedTo)
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users.get(filter.ID); ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	var match func(user.User) bool
	switch {
	case filter.Username != "":
		match = func(usr user.User) bool { return usr.Username == filter.Username }
	case filter.Email != "":
		match = func(usr user.User) bool { return usr.Email == filter.Email }
	case filter.UsernameOrEmail != "":
		match = func(usr user.User) bool {
			return usr.Username == filter.UsernameOrEmail || strings.EqualFold(usr.Email, filter.UsernameOrEmail)
		}
	default:
		return user.User{}, user.ErrNotFound
	}
	if users := repo.db.users.filter(match); len(users) > 0 {
		return users[0], nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.users.set(usr.ID, usr) {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

// DeleteUsersByID also removes the users' analyses and appointments.
func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	owned := make(map[string]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	analysisIDs := repo.db.analyses.deleteWhere(func(a analysis.Analysis) bool { return owned[a.UserID] })
	repo.db.deleteInfos(analysisIDs)
	repo.db.appointments.deleteWhere(func(appt appointment.Appointment) bool { return owned[appt.UserID] })
	return repo.db.users.delete(ids), nil
}
