// Package catalog holds the fixed vocabulary-book and administrator lists
// shown by the dashboard. Nothing here is persisted or mutated.
package catalog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Variant is the display emphasis of a status badge.
type Variant string

const (
	VariantPrimary   Variant = "primary"
	VariantSecondary Variant = "secondary"
)

// Book is one vocabulary book.
type Book struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Words  int    `json:"words"`
	Level  string `json:"level"`
	Status string `json:"status"`
}

// Admin is one administrator account.
type Admin struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// BookStats are the summary figures shown above the book list.
type BookStats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
}

// AdminStats are the summary figures shown above the admin list.
type AdminStats struct {
	Total         int `json:"total"`
	AddedThisWeek int `json:"added_this_week"`
}

const (
	StatusPublished = "Published"
	StatusDraft     = "Draft"
	StatusActive    = "Active"
	StatusDisabled  = "Disabled"
)

var books = []Book{
	{ID: "BK-2026-01", Name: "High-Frequency Grad Exam Vocabulary", Words: 3200, Level: "Advanced", Status: StatusPublished},
	{ID: "BK-2026-02", Name: "IELTS Core Vocabulary", Words: 1800, Level: "Intermediate", Status: StatusPublished},
	{ID: "BK-2026-03", Name: "Kids Starter Vocabulary", Words: 800, Level: "Beginner", Status: StatusDraft},
}

var admins = []Admin{
	{ID: "AD-1001", Name: "Lin Qian", Email: "linqian@example.com", Role: "Super Admin", Status: StatusActive},
	{ID: "AD-1002", Name: "Zhou Yan", Email: "zhouyan@example.com", Role: "Content Admin", Status: StatusActive},
	{ID: "AD-1003", Name: "Liu Shan", Email: "liushan@example.com", Role: "Operations Admin", Status: StatusDisabled},
}

// The summary figures describe the whole library, not the recent list above.
var (
	bookStats  = BookStats{Total: 12, Published: 9, Drafts: 3}
	adminStats = AdminStats{Total: 6, AddedThisWeek: 2}
)

// Books returns a copy of the recently updated books.
func Books() []Book {
	return append([]Book(nil), books...)
}

// Admins returns a copy of the manageable admin accounts.
func Admins() []Admin {
	return append([]Admin(nil), admins...)
}

func BookSummary() BookStats {
	return bookStats
}

func AdminSummary() AdminStats {
	return adminStats
}

// FilterBooks returns the books whose status equals status. An empty status
// returns every book.
func FilterBooks(status string) []Book {
	if status == "" {
		return Books()
	}
	var out []Book
	for _, b := range books {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

// FilterAdmins returns the admins whose status equals status. An empty
// status returns every admin.
func FilterAdmins(status string) []Admin {
	if status == "" {
		return Admins()
	}
	var out []Admin
	for _, a := range admins {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// StatusVariant maps a status to its badge emphasis: published books and
// active admins are primary, everything else secondary.
func StatusVariant(status string) Variant {
	switch status {
	case StatusPublished, StatusActive:
		return VariantPrimary
	default:
		return VariantSecondary
	}
}

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands grouping, e.g. 3200 as "3,200".
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
