// Package views holds the per-screen state: each screen owns its
// collections, fetched independently, and folds mutation results back
// into them so the same entity looks identical wherever it is rendered.
// There is no cross-screen bus; consistency between screens is refetch
// on navigation.
package views

import (
	"context"

	"github.com/postify/postify-client/internal/api"
	"github.com/postify/postify-client/internal/fetch"
	"github.com/postify/postify-client/internal/mutate"
)

// HomeView is the global feed plus the popular tags sidebar.
type HomeView struct {
	coord *mutate.Coordinator
	posts *fetch.Resource[[]api.Post]
	tags  *fetch.Resource[[]string]
}

// NewHomeView creates the home screen state.
func NewHomeView(client *api.Client, coord *mutate.Coordinator) *HomeView {
	return &HomeView{
		coord: coord,
		posts: fetch.New(func(ctx context.Context) ([]api.Post, error) {
			return client.ListPosts(ctx)
		}),
		tags: fetch.New(func(ctx context.Context) ([]string, error) {
			return client.ListTags(ctx)
		}),
	}
}

// Load fetches the feed and tags and waits for both to settle.
func (v *HomeView) Load(ctx context.Context) {
	v.posts.Refetch(ctx)
	v.tags.Refetch(ctx)
	v.posts.Wait()
	v.tags.Wait()
}

// Posts returns the feed's observable state.
func (v *HomeView) Posts() fetch.Snapshot[[]api.Post] {
	return v.posts.Snapshot()
}

// Tags returns the tag list's observable state.
func (v *HomeView) Tags() fetch.Snapshot[[]string] {
	return v.tags.Snapshot()
}

// Refetch replays the feed read.
func (v *HomeView) Refetch(ctx context.Context) {
	v.posts.Refetch(ctx)
	v.posts.Wait()
}

// ToggleFavorite performs the favorite write and, on success, folds the
// server's counters into the held feed entry by id, leaving every other
// entry and the ordering untouched.
func (v *HomeView) ToggleFavorite(ctx context.Context, postID string) mutate.Result {
	post, res := v.coord.ToggleFavorite(ctx, postID)
	if !res.Success {
		return res
	}
	v.posts.Set(applyFavorite(v.posts.Snapshot().Data, *post))
	return res
}
