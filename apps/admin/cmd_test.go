package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core/scholarship"
	"github.com/darpanintel/darpan/core/user"
	logsvc "github.com/darpanintel/darpan/services/logger"
	"github.com/darpanintel/darpan/storage/database"
	inmemdb "github.com/darpanintel/darpan/storage/database/inmem"
	"github.com/darpanintel/darpan/tests"
)

var (
	usrRepo user.Repository
	schSvc  scholarship.Service
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	schSvc = scholarship.NewService(inmemdb.NewScholarshipRepository(db), logsvc.NewLogger("TEST", new(bytes.Buffer)))

	// start CLI
	return &commandLine{
		usrRepo: usrRepo,
		schSvc:  schSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationsFunc = func(_ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { runMigrationsFunc = database.RunMigrations })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "scholarship_tags", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "asha", "asha@test.np", "Kathmandu#2024", user.StudentRoles, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", "  ASHA@test.np "}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			checkErr(t, tt, err)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, refreshedUsr.CheckPassword(tt.extra.(extra).pwd))
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	existing := testutil.CreateUser(t, usrRepo, "Bikash", "bikash", "bikash@test.np", "Pokhara#2024", user.StudentRoles, false)

	type extra struct {
		pwd       string
		email     string
		wantRoles []string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "new@test.np"}, wantErr: errHelp},
		{
			name:  "new student",
			args:  []string{"adduser", "-email", " New@Test.np", "-username", "newbie", "-name", "New Student"},
			extra: extra{pwd: "Everest#8848", email: "new@test.np", wantRoles: user.StudentRoles},
		},
		{
			name:  "new admin",
			args:  []string{"adduser", "-email", "boss@test.np", "-username", "boss", "-admin"},
			extra: extra{pwd: "Everest#8848", email: "boss@test.np", wantRoles: []string{user.RoleAdminOwner}},
		},
		{
			name:  "existing user promoted",
			args:  []string{"adduser", "-email", existing.Email, "-admin"},
			extra: extra{pwd: "Annapurna#8091", email: existing.Email, wantRoles: []string{user.RoleAdminOwner}},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			checkErr(t, tt, err)
			if err != nil {
				return
			}
			ex := tt.extra.(extra)
			usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: ex.email})
			require.NoError(t, err)
			assert.True(t, usr.IsActive)
			assert.Equal(t, ex.wantRoles, usr.Roles)
			assert.NoError(t, usr.CheckPassword(ex.pwd))
		})
	}

	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.Equal(t, "bikash", refreshed.Username)
	assert.Equal(t, "Bikash", refreshed.Name)
}

func Test_commandLine_seedScholarships(t *testing.T) {
	cli := setup(t)
	dir := t.TempDir()

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	valid := writeFile("valid.json", `[
		{"title": "Australia Awards", "country": "Australia", "study_levels": ["postgraduate"], "amount": 50000, "currency": "AUD"},
		{"title": "Chevening", "country": "United Kingdom", "study_levels": ["Postgraduate"]}
	]`)
	invalid := writeFile("invalid.json", `[
		{"title": "Fulbright", "country": "United States"},
		{"title": "", "country": "Japan"}
	]`)
	malformed := writeFile("malformed.json", `{"title":`)

	tests := []cliTest{
		{name: "no args", args: []string{"seedscholarships"}, wantErr: errHelp},
		{name: "missing file", args: []string{"seedscholarships", "-file", filepath.Join(dir, "nope.json")}, wantErrStr: "reading seed file"},
		{name: "malformed file", args: []string{"seedscholarships", "-file", malformed}, wantErrStr: "decoding seed file"},
		{name: "invalid entry", args: []string{"seedscholarships", "-file", invalid}, wantErrStr: "scholarship #2"},
		{name: "valid file", args: []string{"seedscholarships", "-file", valid}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	// the invalid file created nothing
	list, err := schSvc.Search(context.Background(), scholarship.SearchFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
