package api

import (
	"net/http"

	"github.com/jmcleod/vocabadmin/auth"
	"github.com/jmcleod/vocabadmin/catalog"
	"github.com/jmcleod/vocabadmin/web"
)

// page builds the template data shared by every page: the CSRF token, the
// current session and the revision it was read at.
func (a *API) page(w http.ResponseWriter, r *http.Request, title string) web.Page {
	snap := auth.FromContext(r.Context()).Snapshot()
	return web.Page{
		Title:     title,
		Path:      r.URL.Path,
		CSRFToken: csrfToken(w, r),
		Session:   snap.Session,
		Revision:  snap.Revision,
		Watch:     true,
	}
}

func (a *API) render(w http.ResponseWriter, r *http.Request, status int, name string, p web.Page) {
	if err := a.renderer.Render(w, status, name, p); err != nil {
		a.logger.ErrorContext(r.Context(), "rendering page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// placeholder renders the neutral loading page. It refreshes itself until
// the session state has been read.
func (a *API) placeholder(w http.ResponseWriter, r *http.Request, status int, msg string) {
	p := a.page(w, r, "Loading")
	p.Message = msg
	p.Refresh = 1
	a.render(w, r, status, web.PagePlaceholder, p)
}

// Home sends the caller to the landing page or the sign-in page.
func (a *API) Home(w http.ResponseWriter, r *http.Request) {
	switch auth.Decide(auth.FromContext(r.Context()).Snapshot()) {
	case auth.DecisionPlaceholder:
		a.placeholder(w, r, http.StatusOK, "Loading")
	case auth.DecisionRedirect:
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
	default:
		http.Redirect(w, r, landingPath, http.StatusSeeOther)
	}
}

func (a *API) checkingPlaceholder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	a.placeholder(w, r, http.StatusServiceUnavailable, "Checking sign-in status…")
}

// Books renders the vocabulary book management page.
func (a *API) Books(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	p := a.page(w, r, "Vocabulary Book Management")
	p.Data = web.BooksData{
		Stats:  catalog.BookSummary(),
		Books:  catalog.FilterBooks(status),
		Filter: status,
	}
	a.render(w, r, http.StatusOK, web.PageBooks, p)
}

// AdminUsers renders the admin user management page.
func (a *API) AdminUsers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	p := a.page(w, r, "Admin User Management")
	p.Data = web.AdminsData{
		Stats:  catalog.AdminSummary(),
		Admins: catalog.FilterAdmins(status),
		Filter: status,
	}
	a.render(w, r, http.StatusOK, web.PageAdminUsers, p)
}

// GetSession returns the current session snapshot. It is not guarded so
// clients can poll it while the state initializes.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionResponse(auth.FromContext(r.Context()).Snapshot()))
}

// ListBooks returns the book summary and the books matching ?status=.
func (a *API) ListBooks(w http.ResponseWriter, r *http.Request) {
	books := catalog.FilterBooks(r.URL.Query().Get("status"))
	if books == nil {
		books = []catalog.Book{}
	}
	writeJSON(w, http.StatusOK, BooksResponse{Stats: catalog.BookSummary(), Books: books})
}

// ListAdmins returns the admin summary and the admins matching ?status=.
func (a *API) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins := catalog.FilterAdmins(r.URL.Query().Get("status"))
	if admins == nil {
		admins = []catalog.Admin{}
	}
	writeJSON(w, http.StatusOK, AdminsResponse{Stats: catalog.AdminSummary(), Admins: admins})
}
