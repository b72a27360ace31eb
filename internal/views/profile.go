package views

import (
	"context"
	"errors"
	"net/http"

	"github.com/postify/postify-client/internal/api"
	"github.com/postify/postify-client/internal/fetch"
	"github.com/postify/postify-client/internal/mutate"
	"github.com/postify/postify-client/internal/session"
)

// ProfileView is a user's page: the profile header plus the authored
// and favorited tabs. Both tabs are derived from the global post list;
// there is no per-user posts endpoint.
type ProfileView struct {
	username string
	session  *session.Manager
	coord    *mutate.Coordinator
	profile  *fetch.Resource[*api.Profile]
	posts    *fetch.Resource[[]api.Post]
}

// NewProfileView creates the profile screen state for one username.
func NewProfileView(client *api.Client, sess *session.Manager, coord *mutate.Coordinator, username string) *ProfileView {
	return &ProfileView{
		username: username,
		session:  sess,
		coord:    coord,
		profile: fetch.New(func(ctx context.Context) (*api.Profile, error) {
			profile, err := client.GetProfile(ctx, username)
			if err != nil {
				// An anonymous viewer gets a bare placeholder rather
				// than an error page.
				if api.StatusCode(err) == http.StatusUnauthorized {
					return &api.Profile{Username: username, Name: username}, nil
				}
				if api.StatusCode(err) == http.StatusNotFound {
					return nil, errors.New("User not found")
				}
				return nil, errors.New("Failed to load profile")
			}
			return profile, nil
		}),
		posts: fetch.New(func(ctx context.Context) ([]api.Post, error) {
			return client.ListPosts(ctx)
		}),
	}
}

// Load fetches the profile and the global feed and waits for both.
func (v *ProfileView) Load(ctx context.Context) {
	v.profile.Refetch(ctx)
	v.posts.Refetch(ctx)
	v.profile.Wait()
	v.posts.Wait()
}

// Profile returns the profile's observable state.
func (v *ProfileView) Profile() fetch.Snapshot[*api.Profile] {
	return v.profile.Snapshot()
}

// AuthoredPosts filters the global feed down to this profile's posts,
// preserving feed order.
func (v *ProfileView) AuthoredPosts() []api.Post {
	var out []api.Post
	for _, p := range v.posts.Snapshot().Data {
		if p.Author.Username == v.username {
			out = append(out, p)
		}
	}
	return out
}

// FavoritedPosts is the viewer's own favorites tab. It is a deliberate
// best-effort approximation: the server exposes no per-user favorites
// list, so the global feed is filtered by the favorited flag or by
// membership in the viewer's known favourite-id set. Empty for any
// profile other than the signed-in user's own.
func (v *ProfileView) FavoritedPosts() []api.Post {
	user := v.session.CurrentUser()
	if user == nil || user.Username != v.username {
		return nil
	}
	var out []api.Post
	for _, p := range v.posts.Snapshot().Data {
		if p.Favorited || containsID(user.FavouritePosts, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// IsSelf reports whether this profile belongs to the signed-in user.
func (v *ProfileView) IsSelf() bool {
	user := v.session.CurrentUser()
	return user != nil && user.Username == v.username
}

// ToggleFollow performs the follow write and, on success, replaces the
// held profile with the server's returned object wholesale.
func (v *ProfileView) ToggleFollow(ctx context.Context) mutate.Result {
	profile, res := v.coord.ToggleFollow(ctx, v.username)
	if !res.Success {
		return res
	}
	v.profile.Set(profile)
	return res
}
