package models

// Book represents a catalog entry
type Book struct {
	ID           int    `json:"id"`
	Title        string `json:"book"`
	Author       string `json:"author"`
	Type         string `json:"type"`
	Availability string `json:"availability"`
}

// BookRequest represents the book registration and edit forms
type BookRequest struct {
	Title        string `json:"book"`
	Author       string `json:"author"`
	Type         string `json:"type"`
	Availability string `json:"availability"`
}
