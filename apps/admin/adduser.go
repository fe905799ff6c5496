package main

import (
	"context"
	"time"

	"github.com/kat-co/vala"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/user"
)

// addUser updates or creates an active user.User. Admins get the owner role, everyone else is a student.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(email, "email"),
		vala.StringNotEmpty(pwd, "password"),
	).Check(); err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	exists := err == nil
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}
	if uname != "" {
		usr.Username = uname
	}
	if name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = usr.DisplayName()
	}
	if isAdmin {
		usr.Roles = []string{user.RoleAdminOwner}
	} else if len(usr.Roles) == 0 {
		usr.Roles = []string{user.RoleStudent}
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
