package models

import "time"

// Borrow represents a loan request.
//
// Book holds the requested title as typed by the user; it is not a reference to a Book row.
type Borrow struct {
	ID        int       `json:"id"`
	Book      string    `json:"book"`
	UserID    int       `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// BorrowRequest represents the borrow form
type BorrowRequest struct {
	Book string `json:"book"`
}

// BorrowEditRequest represents the admin loan edit form
type BorrowEditRequest struct {
	Book     string `json:"book"`
	Username string `json:"user"`
}
