package services

import "github.com/booklog/backend/internal/models"

// maxPage bounds the page number so the computed offset cannot overflow
const maxPage = 1_000_000

// postFetcher loads up to limit posts starting at offset
type postFetcher func(limit, offset int) ([]models.Post, error)

// paginate loads one page of perPage posts.
//
// One extra row is requested to learn whether a following page exists.
// Pages below 1 are treated as page 1; pages past the end are empty.
func paginate(page, perPage int, fetch postFetcher) (models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		return models.PostPage{Items: []models.Post{}, Page: page, HasPrev: true}, nil
	}

	posts, err := fetch(perPage+1, (page-1)*perPage)
	if err != nil {
		return models.PostPage{}, err
	}

	hasNext := len(posts) > perPage
	if hasNext {
		posts = posts[:perPage]
	}

	return models.PostPage{
		Items:   posts,
		Page:    page,
		HasNext: hasNext,
		HasPrev: page > 1,
	}, nil
}

// requireAdmin returns models.ErrForbidden unless identity is a signed-in admin
func requireAdmin(identity *models.Identity) error {
	if identity == nil || !identity.IsAdmin {
		return models.ErrForbidden
	}
	return nil
}

func toListItems(users []models.User) []models.UserListItem {
	items := make([]models.UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, models.UserListItem{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			IsAdmin:  u.IsAdmin,
		})
	}
	return items
}
