package views

import (
	"context"

	"github.com/postify/postify-client/internal/api"
	"github.com/postify/postify-client/internal/fetch"
	"github.com/postify/postify-client/internal/mutate"
	"github.com/postify/postify-client/internal/session"
)

// PostView is the detail screen: one post plus its comment list.
type PostView struct {
	postID   string
	session  *session.Manager
	coord    *mutate.Coordinator
	post     *fetch.Resource[*api.Post]
	comments *fetch.Resource[[]api.Comment]
}

// NewPostView creates the detail screen state for one post id.
func NewPostView(client *api.Client, sess *session.Manager, coord *mutate.Coordinator, postID string) *PostView {
	return &PostView{
		postID:  postID,
		session: sess,
		coord:   coord,
		post: fetch.New(func(ctx context.Context) (*api.Post, error) {
			return client.GetPost(ctx, postID)
		}),
		comments: fetch.New(func(ctx context.Context) ([]api.Comment, error) {
			return client.ListComments(ctx, postID)
		}),
	}
}

// Load fetches the post and its comments and waits for both.
func (v *PostView) Load(ctx context.Context) {
	v.post.Refetch(ctx)
	v.comments.Refetch(ctx)
	v.post.Wait()
	v.comments.Wait()
}

// Post returns the post's observable state.
func (v *PostView) Post() fetch.Snapshot[*api.Post] {
	return v.post.Snapshot()
}

// Comments returns the comment collection's observable state.
func (v *PostView) Comments() fetch.Snapshot[[]api.Comment] {
	return v.comments.Snapshot()
}

// IsAuthor reports whether the signed-in user wrote this post.
func (v *PostView) IsAuthor() bool {
	user := v.session.CurrentUser()
	post := v.post.Snapshot().Data
	return user != nil && post != nil && user.ID == post.Author.ID
}

// ToggleFavorite performs the favorite write and, on success, refetches
// the post so the detail always shows the server's counters.
func (v *PostView) ToggleFavorite(ctx context.Context) mutate.Result {
	_, res := v.coord.ToggleFavorite(ctx, v.postID)
	if res.Success {
		v.post.Fetch(ctx)
	}
	return res
}

// AddComment posts a comment and, on success, refetches the comment
// collection instead of fabricating an id and timestamp locally.
func (v *PostView) AddComment(ctx context.Context, body string) mutate.Result {
	res := v.coord.AddComment(ctx, v.postID, body)
	if res.Success {
		v.comments.Fetch(ctx)
	}
	return res
}

// DeleteComment removes a comment by its author and refetches the
// collection on success.
func (v *PostView) DeleteComment(ctx context.Context, comment api.Comment) mutate.Result {
	res := v.coord.DeleteComment(ctx, v.postID, comment)
	if res.Success {
		v.comments.Fetch(ctx)
	}
	return res
}

// Delete removes the post itself. The caller navigates away; no
// reconciliation is needed.
func (v *PostView) Delete(ctx context.Context) mutate.Result {
	post := v.post.Snapshot().Data
	if post == nil {
		return mutate.Result{Err: "Post not loaded"}
	}
	return v.coord.DeletePost(ctx, *post)
}
