package models

import "time"

// MaxPostLength is the maximum number of characters in a post body
const MaxPostLength = 140

// Post represents a short status update
type Post struct {
	ID        int       `json:"id"`
	Body      string    `json:"body"`
	UserID    int       `json:"userId"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// PostRequest represents the post form
type PostRequest struct {
	Body string `json:"post"`
}

// PostPage is a single page of posts ordered by recency
type PostPage struct {
	Items   []Post `json:"items"`
	Page    int    `json:"page"`
	HasNext bool   `json:"hasNext"`
	HasPrev bool   `json:"hasPrev"`
}

// NextNum returns the number of the following page, or 0 if there is none
func (p PostPage) NextNum() int {
	if !p.HasNext {
		return 0
	}
	return p.Page + 1
}

// PrevNum returns the number of the preceding page, or 0 if there is none
func (p PostPage) PrevNum() int {
	if !p.HasPrev {
		return 0
	}
	return p.Page - 1
}
