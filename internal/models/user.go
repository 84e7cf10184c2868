package models

import "time"

// User represents a registered library member
type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize password hash
	AboutMe      string     `json:"aboutMe"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	IsAdmin      bool       `json:"isAdmin"`
}

// UserListItem represents a user in list responses
type UserListItem struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Identity is the request-scoped view of the signed-in user
type Identity struct {
	UserID   int
	Username string
	IsAdmin  bool
}

// CanModify reports whether the identity may change a resource owned by ownerID
func (i *Identity) CanModify(ownerID int) bool {
	if i == nil {
		return false
	}
	return i.IsAdmin || i.UserID == ownerID
}

// RegisterRequest represents the registration form (also used by admins to add users)
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// LoginRequest represents the sign-in form
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// EditProfileRequest represents the profile edit form
type EditProfileRequest struct {
	Username string `json:"username"`
	AboutMe  string `json:"aboutMe"`
}

// ProfileResponse is the data behind the profile page
type ProfileResponse struct {
	User           UserListItem   `json:"user"`
	AboutMe        string         `json:"aboutMe"`
	LastSeen       *time.Time     `json:"lastSeen,omitempty"`
	IsFollowing    bool           `json:"isFollowing"`
	FollowersCount int            `json:"followersCount"`
	FollowedCount  int            `json:"followedCount"`
	Posts          PostPage       `json:"posts"`
	Users          []UserListItem `json:"users"`
}
