package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/appointment"
	"github.com/darpanintel/darpan/core/coe"
	"github.com/darpanintel/darpan/core/offerletter"
	"github.com/darpanintel/darpan/core/user"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(Open())

	now := time.Now().UTC()
	alice, err := repo.CreateUser(ctx, user.User{Name: "Alice", Username: "alice_1", Email: "alice@example.com", IsActive: true, Roles: []string{user.RoleAdminOwner}, CreatedAt: now})
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, user.User{Name: "Bob", Email: "bob@example.com", Roles: []string{user.RoleStudent}, CreatedAt: now.Add(time.Second)})
	require.NoError(t, err)
	assert.NotEqual(t, alice.ID, bob.ID)

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "alice_1", "", nil))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "", "bob@example.com", nil))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "", "bob@example.com", []user.User{bob}))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "", "carol@example.com", nil), "empty usernames never clash")
	})

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "bob@example.com"})
		require.NoError(t, err)
		assert.Equal(t, bob.ID, usr.ID)

		_, err = repo.GetUser(ctx, user.GetFilter{Username: "bob"})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("query", func(t *testing.T) {
		list, err := repo.QueryUsers(ctx, &user.QueryFilter{Roles: []string{user.RoleAdmin}}, nil)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, alice.ID, list[0].ID)

		list, err = repo.QueryUsers(ctx, nil, []core.DBOrdering{{Field: "created_at"}})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, bob.ID, list[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		bob.Name = "Robert"
		_, err := repo.UpdateUser(ctx, bob)
		require.NoError(t, err)
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: bob.ID})
		require.NoError(t, err)
		assert.Equal(t, "Robert", usr.Name)

		_, err = repo.UpdateUser(ctx, user.User{ID: "missing"})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}

func TestCascadeDelete(t *testing.T) {
	ctx := context.Background()
	db := Open()
	users := NewUserRepository(db)
	analyses := NewAnalysisRepository(db)
	offers := NewOfferLetterRepository(db)
	coes := NewCoeRepository(db)
	appts := NewAppointmentRepository(db)

	usr, err := users.CreateUser(ctx, user.User{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)

	a1, info, err := offers.CreateOfferLetterAnalysis(ctx,
		analysis.Analysis{UserID: usr.ID, DocumentType: analysis.TypeOfferLetter, Filename: "offer.pdf"},
		offerletter.Info{University: "University of Toronto"})
	require.NoError(t, err)
	assert.Equal(t, a1.ID, info.AnalysisID)
	assert.Equal(t, usr.ID, info.UserID)
	assert.Equal(t, a1.CreatedAt, info.CreatedAt)

	a2, _, err := coes.CreateCoeAnalysis(ctx,
		analysis.Analysis{UserID: usr.ID, DocumentType: analysis.TypeCOE, Filename: "coe.pdf"},
		coe.Info{Provider: "Monash University"})
	require.NoError(t, err)

	_, err = appts.CreateAppointment(ctx, appointment.Appointment{UserID: usr.ID, Topic: "COE"})
	require.NoError(t, err)

	counts, err := analyses.CountAnalyses(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{analysis.TypeOfferLetter: 1, analysis.TypeCOE: 1}, counts)

	// deleting an analysis removes its info
	n, err := analyses.DeleteAnalysesByID(ctx, []string{a1.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = offers.GetOfferLetterInfo(ctx, a1.ID)
	assert.Equal(t, offerletter.ErrNotFound, errors.Cause(err))
	_, err = coes.GetCoeInfo(ctx, a2.ID)
	assert.NoError(t, err)

	// deleting a user removes everything they own
	n, err = users.DeleteUsersByID(ctx, []string{usr.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = analyses.GetAnalysis(ctx, a2.ID)
	assert.Equal(t, analysis.ErrNotFound, errors.Cause(err))
	infos, err := coes.QueryCoeInfos(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, infos)
	list, err := appts.QueryAppointments(ctx, appointment.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTable(t *testing.T) {
	tbl := newTable[string]()
	tbl.insert("a", "first")
	tbl.insert("b", "second")
	tbl.insert("c", "third")

	assert.Equal(t, 1, tbl.delete([]string{"b", "x"}))
	assert.Equal(t, []string{"first", "third"}, tbl.filter(nil))
	assert.False(t, tbl.set("b", "again"))
	assert.True(t, tbl.set("c", "last"))
	assert.Equal(t, []string{"a"}, tbl.deleteWhere(func(s string) bool { return s == "first" }))
	assert.Equal(t, []string{"last"}, tbl.filter(nil))
}
