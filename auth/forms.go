package auth

import (
	"errors"
	"strings"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/vocabadmin/session"
)

// Form validation errors. Their text is shown to the user verbatim.
var (
	ErrMissingCredentials = errors.New("Please enter your email and password.")
	ErrIncompleteSignUp   = errors.New("Please complete all fields.")
	ErrPasswordMismatch   = errors.New("The passwords do not match.")
)

// IsFormError reports whether err is one of the user-facing form errors.
func IsFormError(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrIncompleteSignUp) ||
		errors.Is(err, ErrPasswordMismatch)
}

// defaultDisplayName is used when the email has no local part.
const defaultDisplayName = "Administrator"

// SignInForm is a submitted sign-in form. No credential is checked; the
// password only has to be present.
type SignInForm struct {
	Email    string
	Password string
}

// Validate returns ErrMissingCredentials when either field is empty.
func (f SignInForm) Validate() error {
	if f.Email == "" || f.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Session returns the session a valid form signs in as.
func (f SignInForm) Session() session.Session {
	return session.Session{Name: DisplayName(f.Email), Email: f.Email}
}

// DisplayName derives a name from the local part of email.
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return defaultDisplayName
	}
	return local
}

// SignUpForm is a submitted sign-up form.
type SignUpForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks that every field is present and that both passwords match.
func (f SignUpForm) Validate() error {
	if f.Name == "" || f.Email == "" || f.Password == "" || f.ConfirmPassword == "" {
		return ErrIncompleteSignUp
	}
	if !passwordsMatch(f.Password, f.ConfirmPassword) {
		return ErrPasswordMismatch
	}
	return nil
}

// Session returns the session a valid form signs in as.
func (f SignUpForm) Session() session.Session {
	return session.Session{Name: f.Name, Email: f.Email}
}

// passwordsMatch compares the two passwords in constant time. Only the byte
// copies made here are wiped; the submitted strings live as long as the
// request.
func passwordsMatch(password, confirm string) bool {
	buf := memguard.NewBufferFromBytes([]byte(password))
	defer buf.Destroy()
	other := []byte(confirm)
	defer memguard.WipeBytes(other)
	return buf.EqualTo(other)
}
