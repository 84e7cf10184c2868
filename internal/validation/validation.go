// Package validation checks the shape of submitted forms.
//
// Rules here never touch storage: uniqueness of usernames, emails and book
// titles is checked by the services against the repositories.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/booklog/backend/internal/models"
)

const (
	msgRequired     = "This field is required."
	msgInvalidEmail = "Invalid email address."
	msgPasswordsEq  = "Field must be equal to password."
)

// Column widths of the tables the forms are stored in
const (
	maxUsernameLength = 64
	maxEmailLength    = 120
	maxAboutMeLength  = 140
	maxTitleLength    = 255
	maxAuthorLength   = 255
	maxTypeLength     = 64
	maxAvailLength    = 64
)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Errors maps a form field name to its first validation message
type Errors map[string]string

// Error implements error with a stable, field-ordered message
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field unless one is already present
func (e Errors) Add(field, message string) {
	if _, ok := e[field]; !ok {
		e[field] = message
	}
}

// Err returns nil when there are no messages, otherwise the Errors value itself
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Login validates the sign-in form
func Login(req *models.LoginRequest) error {
	errs := Errors{}
	required(errs, "username", req.Username)
	required(errs, "password", req.Password)
	return errs.Err()
}

// Registration validates the registration form
func Registration(req *models.RegisterRequest) error {
	errs := Errors{}
	if required(errs, "username", req.Username) {
		maxLength(errs, "username", req.Username, maxUsernameLength)
	}
	if required(errs, "email", req.Email) {
		if !emailRegex.MatchString(strings.TrimSpace(req.Email)) {
			errs.Add("email", msgInvalidEmail)
		}
		maxLength(errs, "email", req.Email, maxEmailLength)
	}
	if required(errs, "password", req.Password) && len(req.Password) > MaxPasswordBytes {
		errs.Add("password", fmt.Sprintf("Field cannot be longer than %d bytes.", MaxPasswordBytes))
	}
	if required(errs, "password2", req.Password2) && req.Password2 != req.Password {
		errs.Add("password2", msgPasswordsEq)
	}
	return errs.Err()
}

// EditProfile validates the profile edit form
func EditProfile(req *models.EditProfileRequest) error {
	errs := Errors{}
	if required(errs, "username", req.Username) {
		maxLength(errs, "username", req.Username, maxUsernameLength)
	}
	maxLength(errs, "aboutMe", req.AboutMe, maxAboutMeLength)
	return errs.Err()
}

// Post validates a post body: required, between 1 and MaxPostLength characters
func Post(req *models.PostRequest) error {
	errs := Errors{}
	if required(errs, "post", req.Body) {
		lengthBetween(errs, "post", req.Body, 1, models.MaxPostLength)
	}
	return errs.Err()
}

// Book validates the book registration and edit forms
func Book(req *models.BookRequest) error {
	errs := Errors{}
	requiredMax(errs, "book", req.Title, maxTitleLength)
	requiredMax(errs, "author", req.Author, maxAuthorLength)
	requiredMax(errs, "type", req.Type, maxTypeLength)
	requiredMax(errs, "availability", req.Availability, maxAvailLength)
	return errs.Err()
}

// Borrow validates the borrow request form
func Borrow(req *models.BorrowRequest) error {
	errs := Errors{}
	requiredMax(errs, "book", req.Book, maxTitleLength)
	return errs.Err()
}

// BorrowEdit validates the admin loan edit form
func BorrowEdit(req *models.BorrowEditRequest) error {
	errs := Errors{}
	requiredMax(errs, "book", req.Book, maxTitleLength)
	requiredMax(errs, "user", req.Username, maxUsernameLength)
	return errs.Err()
}

// required reports whether value holds something other than whitespace
func required(errs Errors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, msgRequired)
		return false
	}
	return true
}

func requiredMax(errs Errors, field, value string, maxLen int) {
	if required(errs, field, value) {
		maxLength(errs, field, value, maxLen)
	}
}

func lengthBetween(errs Errors, field, value string, minLen, maxLen int) {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		errs.Add(field, fmt.Sprintf("Field must be between %d and %d characters long.", minLen, maxLen))
	}
}

func maxLength(errs Errors, field, value string, maxLen int) {
	if utf8.RuneCountInString(value) > maxLen {
		errs.Add(field, fmt.Sprintf("Field cannot be longer than %d characters.", maxLen))
	}
}
