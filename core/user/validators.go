package user

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/darpanintel/darpan/core"
	appfs "github.com/darpanintel/darpan/fs"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	usernameOrEmailTag  = "username_or_email"
	usernameOrEmailText = "one of username or email is required"

	pwdMinLen    = 8
	pwdMaxSim    = .7
	specialRegex = regexp.MustCompile("[^A-Za-z0-9]")

	commonPasswords = make([]string, 0, 64)

	// pwdPolicy is checked in order; only the first broken rule is reported.
	pwdPolicy = []pwdRule{
		{
			tag:  "pwdminlen",
			text: fmt.Sprintf("password must contain at least %d characters", pwdMinLen),
			ok:   func(pwd string, _ []string) bool { return utf8.RuneCountInString(pwd) >= pwdMinLen },
		},
		{
			tag:  "pwdnospace",
			text: "password must not contain whitespace",
			ok:   func(pwd string, _ []string) bool { return strings.IndexFunc(pwd, unicode.IsSpace) < 0 },
		},
		{
			tag:  "pwdnotallnum",
			text: "password cannot be entirely numeric",
			ok: func(pwd string, _ []string) bool {
				return strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0
			},
		},
		{
			tag:  "pwdcplx",
			text: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			ok:   isComplexPassword,
		},
		{
			tag:  "pwdtoosim",
			text: "password cannot be similar to user attributes",
			ok:   isDissimilarPassword,
		},
		{
			tag:  "pwdnocommon",
			text: "password is too common",
			ok:   isUncommonPassword,
		},
	}
)

type pwdRule struct {
	tag  string
	text string
	ok   func(pwd string, usrAttrs []string) bool
}

func init() {
	loadCommonPasswords()

	// register validators
	_ = core.Validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(allRolesTag, allRolesText)

	core.Validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{}, Registration{}, ResetUserPassword{})
	core.RegisterCustomTranslation(usernameOrEmailTag, usernameOrEmailText)
	for _, rule := range pwdPolicy {
		core.RegisterCustomTranslation(rule.tag, rule.text)
	}
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open("assets/common-passwords.txt")
	if err != nil {
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.ToLower(strings.TrimSpace(scanner.Text())); pwd != "" {
			commonPasswords = append(commonPasswords, pwd)
		}
	}
	sort.Strings(commonPasswords)
}

// Custom Validators

// allRolesValidation checks that provided user roles are all in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if _, known := rolePriorities[role]; !known {
			return false
		}
	}
	return true
}

// userStructValidation does struct level validation on NewUser, UpdateUser, Registration and ResetUserPassword structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validateUsernameAndEmail(usr, sl)
		validatePassword(usr.Password, sl, usr.Name, usr.Username, usr.Email)
	case Registration:
		validatePassword(usr.Password, sl, usr.Name, usr.Email)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, sl, usr.Name, usr.Username, usr.Email)
		}
	case ResetUserPassword:
		validatePassword(usr.Password, sl)
	}
}

// validateUsernameAndEmail checks that one of Username or Email is provided
func validateUsernameAndEmail(nu NewUser, sl validator.StructLevel) {
	if len(nu.Username) == 0 && len(nu.Email) == 0 {
		sl.ReportError(nu.Username, "username", "Username", usernameOrEmailTag, "")
		sl.ReportError(nu.Email, "email", "Email", usernameOrEmailTag, "")
	}
}

func validatePassword(pwd string, sl validator.StructLevel, usrAttrs ...string) {
	if rule, broken := brokenPwdRule(pwd, usrAttrs...); broken {
		sl.ReportError(pwd, "password", "Password", rule.tag, "")
	}
}

// brokenPwdRule returns the first pwdPolicy rule pwd breaks.
func brokenPwdRule(pwd string, usrAttrs ...string) (pwdRule, bool) {
	for _, rule := range pwdPolicy {
		if !rule.ok(pwd, usrAttrs) {
			return rule, true
		}
	}
	return pwdRule{}, false
}

func isComplexPassword(pwd string, _ []string) bool {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range pwd {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit && specialRegex.MatchString(pwd)
}

func isDissimilarPassword(pwd string, usrAttrs []string) bool {
	lpwd := strings.Split(strings.ToLower(pwd), "")
	for _, attr := range usrAttrs {
		if attr == "" {
			continue
		}
		m := difflib.NewMatcher(lpwd, strings.Split(strings.ToLower(attr), ""))
		if m.QuickRatio() >= pwdMaxSim {
			return false
		}
	}
	return true
}

func isUncommonPassword(pwd string, _ []string) bool {
	lpwd := strings.ToLower(pwd)
	idx := sort.SearchStrings(commonPasswords, lpwd)
	return idx == len(commonPasswords) || commonPasswords[idx] != lpwd
}
