package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/booklog/backend/internal/metrics"
	"github.com/booklog/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeDB is an in-memory stand-in for the MySQL schema shared by the fake repositories below
type fakeDB struct {
	users      map[int]*models.User
	follows    map[[2]int]bool
	posts      map[int]*models.Post
	books      map[int]*models.Book
	borrows    map[int]*models.Borrow
	nextID     int
	mutations  int
	err        error
	lastSeenAt map[int]time.Time
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:      map[int]*models.User{},
		follows:    map[[2]int]bool{},
		posts:      map[int]*models.Post{},
		books:      map[int]*models.Book{},
		borrows:    map[int]*models.Borrow{},
		lastSeenAt: map[int]time.Time{},
	}
}

func (db *fakeDB) id() int {
	db.nextID++
	return db.nextID
}

func (db *fakeDB) addUser(username string, isAdmin bool) *models.User {
	u := &models.User{ID: db.id(), Username: username, Email: username + "@example.com", IsAdmin: isAdmin}
	db.users[u.ID] = u
	return u
}

func (db *fakeDB) addPost(author *models.User, body string, ts time.Time) *models.Post {
	p := &models.Post{ID: db.id(), Body: body, UserID: author.ID, Author: author.Username, Timestamp: ts}
	db.posts[p.ID] = p
	return p
}

func identityOf(u *models.User) *models.Identity {
	return &models.Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// fakeUsers implements every user repository interface over fakeDB
type fakeUsers struct{ db *fakeDB }

func (f fakeUsers) Create(ctx context.Context, user *models.User) error {
	if f.db.err != nil {
		return f.db.err
	}
	for _, u := range f.db.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", models.ErrDuplicate)
		}
	}
	f.db.mutations++
	user.ID = f.db.id()
	stored := *user
	f.db.users[user.ID] = &stored
	return nil
}

func (f fakeUsers) GetByID(ctx context.Context, userID int) (*models.User, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	u, ok := f.db.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	for _, u := range f.db.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %w", models.ErrNotFound)
}

func (f fakeUsers) GetAll(ctx context.Context) ([]models.User, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	users := []models.User{}
	for _, u := range f.db.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (f fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.db.err != nil {
		return false, f.db.err
	}
	for _, u := range f.db.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if f.db.err != nil {
		return false, f.db.err
	}
	return false, nil
}

func (f fakeUsers) UpdateProfile(ctx context.Context, userID int, username, aboutMe string) error {
	u, ok := f.db.users[userID]
	if !ok {
		return fmt.Errorf("user %w", models.ErrNotFound)
	}
	f.db.mutations++
	u.Username = username
	u.AboutMe = aboutMe
	return nil
}

func (f fakeUsers) UpdateLastSeen(ctx context.Context, userID int, seen time.Time) error {
	f.db.lastSeenAt[userID] = seen
	return nil
}

func (f fakeUsers) SetAdmin(ctx context.Context, userID int, isAdmin bool) error {
	u, ok := f.db.users[userID]
	if !ok {
		return fmt.Errorf("user %w", models.ErrNotFound)
	}
	f.db.mutations++
	u.IsAdmin = isAdmin
	return nil
}

func (f fakeUsers) Delete(ctx context.Context, userID int) error {
	if _, ok := f.db.users[userID]; !ok {
		return fmt.Errorf("user %w", models.ErrNotFound)
	}
	f.db.mutations++
	for edge := range f.db.follows {
		if edge[0] == userID || edge[1] == userID {
			delete(f.db.follows, edge)
		}
	}
	for id, p := range f.db.posts {
		if p.UserID == userID {
			delete(f.db.posts, id)
		}
	}
	for id, b := range f.db.borrows {
		if b.UserID == userID {
			delete(f.db.borrows, id)
		}
	}
	delete(f.db.users, userID)
	return nil
}

func (f fakeUsers) Follow(ctx context.Context, followerID, followedID int) error {
	f.db.mutations++
	f.db.follows[[2]int{followerID, followedID}] = true
	return nil
}

func (f fakeUsers) Unfollow(ctx context.Context, followerID, followedID int) error {
	f.db.mutations++
	delete(f.db.follows, [2]int{followerID, followedID})
	return nil
}

func (f fakeUsers) IsFollowing(ctx context.Context, followerID, followedID int) (bool, error) {
	return f.db.follows[[2]int{followerID, followedID}], nil
}

func (f fakeUsers) FollowCounts(ctx context.Context, userID int) (int, int, error) {
	var followers, followed int
	for edge := range f.db.follows {
		if edge[1] == userID {
			followers++
		}
		if edge[0] == userID {
			followed++
		}
	}
	return followers, followed, nil
}

// fakePosts implements PostRepository over fakeDB
type fakePosts struct{ db *fakeDB }

func (f fakePosts) Create(ctx context.Context, post *models.Post) error {
	if f.db.err != nil {
		return f.db.err
	}
	f.db.mutations++
	post.ID = f.db.id()
	stored := *post
	f.db.posts[post.ID] = &stored
	return nil
}

func (f fakePosts) GetByID(ctx context.Context, postID int) (*models.Post, error) {
	p, ok := f.db.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (f fakePosts) UpdateBody(ctx context.Context, postID int, body string) error {
	p, ok := f.db.posts[postID]
	if !ok {
		return fmt.Errorf("post %w", models.ErrNotFound)
	}
	f.db.mutations++
	p.Body = body
	return nil
}

func (f fakePosts) Delete(ctx context.Context, postID int) error {
	if _, ok := f.db.posts[postID]; !ok {
		return fmt.Errorf("post %w", models.ErrNotFound)
	}
	f.db.mutations++
	delete(f.db.posts, postID)
	return nil
}

func (f fakePosts) ListFeed(ctx context.Context, userID, limit, offset int) ([]models.Post, error) {
	return f.list(limit, offset, func(p *models.Post) bool {
		return p.UserID == userID || f.db.follows[[2]int{userID, p.UserID}]
	})
}

func (f fakePosts) ListAll(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return f.list(limit, offset, func(*models.Post) bool { return true })
}

func (f fakePosts) ListByAuthor(ctx context.Context, userID, limit, offset int) ([]models.Post, error) {
	return f.list(limit, offset, func(p *models.Post) bool { return p.UserID == userID })
}

func (f fakePosts) list(limit, offset int, keep func(*models.Post) bool) ([]models.Post, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	posts := []models.Post{}
	for _, p := range f.db.posts {
		if keep(p) {
			posts = append(posts, *p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Timestamp.Equal(posts[j].Timestamp) {
			return posts[i].Timestamp.After(posts[j].Timestamp)
		}
		return posts[i].ID > posts[j].ID
	})
	if offset >= len(posts) {
		return []models.Post{}, nil
	}
	posts = posts[offset:]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// fakeBooks implements BookRepository over fakeDB
type fakeBooks struct{ db *fakeDB }

func (f fakeBooks) Create(ctx context.Context, book *models.Book) error {
	f.db.mutations++
	book.ID = f.db.id()
	stored := *book
	f.db.books[book.ID] = &stored
	return nil
}

func (f fakeBooks) GetByID(ctx context.Context, bookID int) (*models.Book, error) {
	b, ok := f.db.books[bookID]
	if !ok {
		return nil, fmt.Errorf("book %w", models.ErrNotFound)
	}
	copied := *b
	return &copied, nil
}

func (f fakeBooks) GetAll(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	for _, b := range f.db.books {
		books = append(books, *b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (f fakeBooks) ExistsByTitle(ctx context.Context, title string, excludeID int) (bool, error) {
	for _, b := range f.db.books {
		if b.Title == title && b.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeBooks) Update(ctx context.Context, book *models.Book) error {
	if _, ok := f.db.books[book.ID]; !ok {
		return fmt.Errorf("book %w", models.ErrNotFound)
	}
	f.db.mutations++
	stored := *book
	f.db.books[book.ID] = &stored
	return nil
}

func (f fakeBooks) Delete(ctx context.Context, bookID int) error {
	if _, ok := f.db.books[bookID]; !ok {
		return fmt.Errorf("book %w", models.ErrNotFound)
	}
	f.db.mutations++
	delete(f.db.books, bookID)
	return nil
}

// fakeBorrows implements BorrowRepository over fakeDB
type fakeBorrows struct{ db *fakeDB }

func (f fakeBorrows) Create(ctx context.Context, borrow *models.Borrow) error {
	f.db.mutations++
	borrow.ID = f.db.id()
	stored := *borrow
	f.db.borrows[borrow.ID] = &stored
	return nil
}

func (f fakeBorrows) GetByID(ctx context.Context, borrowID int) (*models.Borrow, error) {
	b, ok := f.db.borrows[borrowID]
	if !ok {
		return nil, fmt.Errorf("borrow %w", models.ErrNotFound)
	}
	copied := *b
	return &copied, nil
}

func (f fakeBorrows) GetAll(ctx context.Context) ([]models.Borrow, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	borrows := []models.Borrow{}
	for _, b := range f.db.borrows {
		borrows = append(borrows, *b)
	}
	sort.Slice(borrows, func(i, j int) bool { return borrows[i].ID < borrows[j].ID })
	return borrows, nil
}

func (f fakeBorrows) Update(ctx context.Context, borrowID int, book string, userID int) error {
	b, ok := f.db.borrows[borrowID]
	if !ok {
		return fmt.Errorf("borrow %w", models.ErrNotFound)
	}
	f.db.mutations++
	b.Book = book
	b.UserID = userID
	b.Username = f.db.users[userID].Username
	return nil
}

func (f fakeBorrows) Delete(ctx context.Context, borrowID int) error {
	if _, ok := f.db.borrows[borrowID]; !ok {
		return fmt.Errorf("borrow %w", models.ErrNotFound)
	}
	f.db.mutations++
	delete(f.db.borrows, borrowID)
	return nil
}
