package models

// HomeResponse is the data behind the home and explore pages
type HomeResponse struct {
	Title   string   `json:"title"`
	Posts   PostPage `json:"posts"`
	NextURL string   `json:"nextUrl,omitempty"`
	PrevURL string   `json:"prevUrl,omitempty"`
	Borrows []Borrow `json:"borrows"`
}

// BooklistResponse is the data behind the book list page
type BooklistResponse struct {
	Books   []Book   `json:"books"`
	Borrows []Borrow `json:"borrows"`
}

// DashboardResponse is the data behind the admin dashboard
type DashboardResponse struct {
	Users   []UserListItem `json:"users"`
	Books   []Book         `json:"books"`
	Borrows []Borrow       `json:"borrows"`
	Posts   PostPage       `json:"posts"`
}
