// Package mutate performs entity writes. It is the only writer of
// entity state; views fold its results into their own collections.
package mutate

import (
	"context"
	"strings"

	"github.com/postify/postify-client/internal/api"
	"github.com/postify/postify-client/internal/session"
)

// Guard messages returned before any request is issued.
const (
	msgSignedOut   = "You must be signed in to do that"
	msgNotAuthor   = "Only the author may do that"
	msgSelfFollow  = "You cannot follow yourself"
	msgEmptyFields = "Title, description and body are required"
	msgEmptyBody   = "Comment body cannot be empty"
)

// Result is the uniform outcome of a mutation. Failures carry the
// server's message when one was sent, else action-specific text.
type Result struct {
	Success bool
	Err     string
}

func failure(msg string) Result {
	return Result{Err: msg}
}

// Coordinator decides, per mutation kind, whether a write patches local
// state from the server's response or resolves by refetch. All writes
// are gated on the session: unauthenticated attempts never reach the
// network.
type Coordinator struct {
	client  *api.Client
	session *session.Manager
}

// NewCoordinator creates a mutation coordinator.
func NewCoordinator(client *api.Client, sess *session.Manager) *Coordinator {
	return &Coordinator{client: client, session: sess}
}

// ToggleFavorite flips the viewer's favorite on a post. The returned
// post carries the server's authoritative favorited flag and count;
// nothing is flipped locally before the server answers.
func (c *Coordinator) ToggleFavorite(ctx context.Context, postID string) (*api.Post, Result) {
	if !c.session.IsAuthenticated() {
		return nil, failure(msgSignedOut)
	}
	post, err := c.client.ToggleFavorite(ctx, postID)
	if err != nil {
		return nil, failure(api.ErrorMessage(err, "Failed to toggle favorite"))
	}
	return post, Result{Success: true}
}

// ToggleFollow flips the viewer's follow on another user. Following
// yourself is rejected client-side.
func (c *Coordinator) ToggleFollow(ctx context.Context, username string) (*api.Profile, Result) {
	user := c.session.CurrentUser()
	if user == nil {
		return nil, failure(msgSignedOut)
	}
	if user.Username == username {
		return nil, failure(msgSelfFollow)
	}
	profile, err := c.client.ToggleFollow(ctx, username)
	if err != nil {
		return nil, failure(api.ErrorMessage(err, "Failed to toggle follow"))
	}
	return profile, Result{Success: true}
}

// AddComment posts a comment. On success the caller refetches the
// comment collection rather than fabricating ids locally.
func (c *Coordinator) AddComment(ctx context.Context, postID, body string) Result {
	if !c.session.IsAuthenticated() {
		return failure(msgSignedOut)
	}
	if strings.TrimSpace(body) == "" {
		return failure(msgEmptyBody)
	}
	if _, err := c.client.AddComment(ctx, postID, body); err != nil {
		return failure(api.ErrorMessage(err, "Failed to post comment"))
	}
	return Result{Success: true}
}

// DeleteComment removes a comment. A non-author attempt is blocked
// before any request is sent.
func (c *Coordinator) DeleteComment(ctx context.Context, postID string, comment api.Comment) Result {
	user := c.session.CurrentUser()
	if user == nil {
		return failure(msgSignedOut)
	}
	if user.ID != comment.Author.ID {
		return failure(msgNotAuthor)
	}
	if err := c.client.DeleteComment(ctx, postID, comment.ID); err != nil {
		return failure(api.ErrorMessage(err, "Failed to delete comment"))
	}
	return Result{Success: true}
}

// CreatePost publishes a draft. No list is patched; the feed is
// refetched on next visit.
func (c *Coordinator) CreatePost(ctx context.Context, draft api.PostDraft) (*api.Post, Result) {
	if !c.session.IsAuthenticated() {
		return nil, failure(msgSignedOut)
	}
	if res := validateDraft(draft); !res.Success {
		return nil, res
	}
	post, err := c.client.CreatePost(ctx, draft)
	if err != nil {
		return nil, failure(api.ErrorMessage(err, "Failed to create post"))
	}
	return post, Result{Success: true}
}

// UpdatePost replaces a post's content. Only its author may update it.
func (c *Coordinator) UpdatePost(ctx context.Context, post api.Post, draft api.PostDraft) (*api.Post, Result) {
	user := c.session.CurrentUser()
	if user == nil {
		return nil, failure(msgSignedOut)
	}
	if user.ID != post.Author.ID {
		return nil, failure(msgNotAuthor)
	}
	if res := validateDraft(draft); !res.Success {
		return nil, res
	}
	updated, err := c.client.UpdatePost(ctx, post.ID, draft)
	if err != nil {
		return nil, failure(api.ErrorMessage(err, "Failed to update post"))
	}
	return updated, Result{Success: true}
}

// DeletePost removes a post. Only its author may delete it.
func (c *Coordinator) DeletePost(ctx context.Context, post api.Post) Result {
	user := c.session.CurrentUser()
	if user == nil {
		return failure(msgSignedOut)
	}
	if user.ID != post.Author.ID {
		return failure(msgNotAuthor)
	}
	if err := c.client.DeletePost(ctx, post.ID); err != nil {
		return failure(api.ErrorMessage(err, "Failed to delete post"))
	}
	return Result{Success: true}
}

func validateDraft(draft api.PostDraft) Result {
	if strings.TrimSpace(draft.Title) == "" ||
		strings.TrimSpace(draft.Description) == "" ||
		strings.TrimSpace(draft.Body) == "" {
		return failure(msgEmptyFields)
	}
	return Result{Success: true}
}
