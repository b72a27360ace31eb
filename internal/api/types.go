package api

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID             string   `json:"_id"`
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Bio            string   `json:"bio"`
	Image          string   `json:"image"`
	Following      bool     `json:"following"`
	FavouritePosts []string `json:"favouritePosts"`
}

// Author is the summary of a user embedded in posts and comments.
type Author struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Image    string `json:"image"`
}

// Post represents a published post. Favorited and FavouritesCount are
// relative to the viewer's session.
type Post struct {
	ID              string   `json:"_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Body            string   `json:"body"`
	TagList         []string `json:"tagList"`
	Author          Author   `json:"author"`
	CreatedAt       string   `json:"createdAt"`
	Favorited       bool     `json:"favorited"`
	FavouritesCount int      `json:"favouritesCount"`
}

// Comment represents a comment on a post.
type Comment struct {
	ID        string `json:"_id"`
	Body      string `json:"body"`
	Author    Author `json:"author"`
	CreatedAt string `json:"createdAt"`
}

// Profile is a user's public page, Following relative to the viewer.
type Profile struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostDraft is the payload for creating or updating a post.
type PostDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList"`
}
