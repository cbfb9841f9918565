package api

import (
	"github.com/jmcleod/vocabadmin/auth"
	"github.com/jmcleod/vocabadmin/catalog"
	"github.com/jmcleod/vocabadmin/session"
)

// SessionResponse is returned from GET/POST /session.
type SessionResponse struct {
	Status   string           `json:"status"`
	Loading  bool             `json:"loading"`
	Revision uint64           `json:"revision"`
	Session  *session.Session `json:"session"`
}

func newSessionResponse(snap auth.Snapshot) SessionResponse {
	return SessionResponse{
		Status:   snap.Status().String(),
		Loading:  snap.Loading,
		Revision: snap.Revision,
		Session:  snap.Session,
	}
}

// SessionEvent is the payload of a "session" server-sent event.
type SessionEvent struct {
	Status   string `json:"status"`
	Revision uint64 `json:"revision"`
}

// SignInRequest is the JSON body for POST /session.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BooksResponse is returned from GET /books.
type BooksResponse struct {
	Stats catalog.BookStats `json:"stats"`
	Books []catalog.Book    `json:"books"`
}

// AdminsResponse is returned from GET /admins.
type AdminsResponse struct {
	Stats  catalog.AdminStats `json:"stats"`
	Admins []catalog.Admin    `json:"admins"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}
