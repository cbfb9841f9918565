package api

import (
	"log/slog"
	"net/http"

	"github.com/jmcleod/vocabadmin/auth"
	"github.com/jmcleod/vocabadmin/session"
	"github.com/jmcleod/vocabadmin/web"
)

const saveFailedMessage = "Could not save your session. Please try again."

// SignInPage renders the sign-in form, or sends an authenticated caller to
// the landing page.
func (a *API) SignInPage(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).Status() == auth.StatusAuthenticated {
		http.Redirect(w, r, landingPath, http.StatusSeeOther)
		return
	}
	a.render(w, r, http.StatusOK, web.PageSignIn, a.page(w, r, "Sign In"))
}

// SignIn handles the sign-in form. Any non-empty email and password are
// accepted.
func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	form := auth.SignInForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	values := map[string]string{"email": form.Email}
	if err := form.Validate(); err != nil {
		if a.throttled(w, r, AuditLoginRejected, web.PageSignIn, "Sign In", values) {
			return
		}
		a.reject(r, AuditLoginRejected, err)
		a.formError(w, r, web.PageSignIn, "Sign In", err, statusFor(err), values)
		return
	}
	sess := form.Session()
	if !a.login(w, r, sess, web.PageSignIn, "Sign In", values) {
		return
	}
	a.limiter.recordSuccess(clientIP(r))
	a.audit.logEvent(AuditLogin, r, sess.Email)
	http.Redirect(w, r, landingPath, http.StatusSeeOther)
}

// SignUpPage renders the sign-up form, or sends an authenticated caller to
// the landing page.
func (a *API) SignUpPage(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).Status() == auth.StatusAuthenticated {
		http.Redirect(w, r, landingPath, http.StatusSeeOther)
		return
	}
	a.render(w, r, http.StatusOK, web.PageSignUp, a.page(w, r, "Sign Up"))
}

// SignUp handles the sign-up form. Nothing is registered; a complete form
// with matching passwords signs the caller in under the submitted name.
func (a *API) SignUp(w http.ResponseWriter, r *http.Request) {
	form := auth.SignUpForm{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	values := map[string]string{"name": form.Name, "email": form.Email}
	if err := form.Validate(); err != nil {
		if a.throttled(w, r, AuditSignUpRejected, web.PageSignUp, "Sign Up", values) {
			return
		}
		a.reject(r, AuditSignUpRejected, err)
		a.formError(w, r, web.PageSignUp, "Sign Up", err, statusFor(err), values)
		return
	}
	sess := form.Session()
	if !a.login(w, r, sess, web.PageSignUp, "Sign Up", values) {
		return
	}
	a.limiter.recordSuccess(clientIP(r))
	a.audit.logEvent(AuditSignUp, r, sess.Email, slog.String("name", sess.Name))
	http.Redirect(w, r, landingPath, http.StatusSeeOther)
}

// SignOut clears the session and returns to the sign-in page.
func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	st := auth.FromContext(r.Context())
	var email string
	if cur := st.Current(); cur != nil {
		email = cur.Email
	}
	if err := st.Logout(r.Context()); err != nil {
		a.logger.ErrorContext(r.Context(), "signing out", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	a.audit.logEvent(AuditLogout, r, email)
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
}

// CreateSession is the JSON form of SignIn.
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[SignInRequest](w, r, maxJSONBodySize)
	if !ok {
		return
	}
	form := auth.SignInForm{Email: req.Email, Password: req.Password}
	if err := form.Validate(); err != nil {
		if blocked, retryAfter := a.limiter.check(clientIP(r)); blocked {
			a.audit.logFailure(AuditLoginRejected, r, "rate limited")
			writeRateLimited(w, retryAfter)
			return
		}
		a.reject(r, AuditLoginRejected, err)
		mapError(w, err)
		return
	}
	st := auth.FromContext(r.Context())
	sess := form.Session()
	if err := st.Login(r.Context(), sess); err != nil {
		a.logger.ErrorContext(r.Context(), "signing in", "error", err)
		mapError(w, err)
		return
	}
	a.limiter.recordSuccess(clientIP(r))
	a.audit.logEvent(AuditLogin, r, sess.Email)
	writeJSON(w, http.StatusOK, newSessionResponse(st.Snapshot()))
}

// DeleteSession is the JSON form of SignOut.
func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	st := auth.FromContext(r.Context())
	var email string
	if cur := st.Current(); cur != nil {
		email = cur.Email
	}
	if err := st.Logout(r.Context()); err != nil {
		a.logger.ErrorContext(r.Context(), "signing out", "error", err)
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditLogout, r, email)
	w.WriteHeader(http.StatusNoContent)
}

// login persists sess, re-rendering the form with an error when the store
// rejects the write.
func (a *API) login(w http.ResponseWriter, r *http.Request, sess session.Session, name, title string, values map[string]string) bool {
	if err := auth.FromContext(r.Context()).Login(r.Context(), sess); err != nil {
		a.logger.ErrorContext(r.Context(), "signing in", "error", err)
		a.formError(w, r, name, title, nil, http.StatusInternalServerError, values)
		return false
	}
	return true
}

// throttled re-renders a rejected form with a 429 when the caller's address
// is locked out. Complete submissions never reach it.
func (a *API) throttled(w http.ResponseWriter, r *http.Request, event AuditEvent, name, title string, values map[string]string) bool {
	blocked, retryAfter := a.limiter.check(clientIP(r))
	if !blocked {
		return false
	}
	a.audit.logFailure(event, r, "rate limited")
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	p := a.page(w, r, title)
	p.Error = rateLimitedMessage
	p.Form = values
	a.render(w, r, http.StatusTooManyRequests, name, p)
	return true
}

// reject records a rejected submission against the caller's address.
func (a *API) reject(r *http.Request, event AuditEvent, err error) {
	a.limiter.recordFailure(clientIP(r))
	a.audit.logFailure(event, r, err.Error())
}

// formError re-renders a form with one inline message. Passwords are never
// echoed back.
func (a *API) formError(w http.ResponseWriter, r *http.Request, name, title string, err error, status int, values map[string]string) {
	p := a.page(w, r, title)
	p.Error = saveFailedMessage
	if err != nil {
		p.Error = err.Error()
	}
	p.Form = values
	a.render(w, r, status, name, p)
}
