package views

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/postify/postify-client/internal/api"
	"github.com/postify/postify-client/internal/mutate"
	"github.com/postify/postify-client/internal/session"
)

// fakeBackend is a stateful posts service: favorites toggle, comments
// append and delete, profiles follow. commentPosts counts comment POSTs
// so tests can assert guards fired before the network.
type fakeBackend struct {
	*httptest.Server
	mu            sync.Mutex
	loggedIn      bool
	user          api.User
	posts         []api.Post
	comments      map[string][]api.Comment
	profiles      map[string]*api.Profile
	profileStatus int // when non-zero, every profile GET returns this status
	commentPosts  atomic.Int64
	nextCommentID int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{
		user: api.User{ID: "u1", Username: "alice"},
		posts: []api.Post{
			{ID: "p1", Title: "first", Author: api.Author{ID: "u1", Username: "alice"}},
			{ID: "p2", Title: "second", Author: api.Author{ID: "u2", Username: "bob"}},
			{ID: "p3", Title: "third", Author: api.Author{ID: "u1", Username: "alice"}},
		},
		comments: map[string][]api.Comment{
			"p1": {{ID: "c1", Body: "nice", Author: api.Author{ID: "u2", Username: "bob"}}},
		},
		profiles: map[string]*api.Profile{
			"alice": {Username: "alice", Name: "Alice"},
			"bob":   {Username: "bob", Name: "Bob"},
		},
		nextCommentID: 2,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/auth/user":
		if !f.loggedIn {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "not signed in"})
			return
		}
		json.NewEncoder(w).Encode(f.user)

	case r.URL.Path == "/posts" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]interface{}{"posts": f.posts})

	case r.URL.Path == "/tags":
		json.NewEncoder(w).Encode(map[string]interface{}{"tags": []string{"go", "testing"}})

	case len(parts) == 3 && parts[0] == "posts" && parts[2] == "favorite":
		for i := range f.posts {
			if f.posts[i].ID == parts[1] {
				f.posts[i].Favorited = !f.posts[i].Favorited
				if f.posts[i].Favorited {
					f.posts[i].FavouritesCount++
				} else {
					f.posts[i].FavouritesCount--
				}
				json.NewEncoder(w).Encode(map[string]interface{}{"post": f.posts[i]})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)

	case len(parts) == 3 && parts[0] == "posts" && parts[2] == "comments" && r.Method == http.MethodGet:
		comments := f.comments[parts[1]]
		if comments == nil {
			comments = []api.Comment{}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"comments": comments})

	case len(parts) == 3 && parts[0] == "posts" && parts[2] == "comments" && r.Method == http.MethodPost:
		f.commentPosts.Add(1)
		var payload struct {
			Body string `json:"body"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		comment := api.Comment{
			ID:     fmt.Sprintf("c%d", f.nextCommentID),
			Body:   payload.Body,
			Author: api.Author{ID: f.user.ID, Username: f.user.Username},
		}
		f.nextCommentID++
		f.comments[parts[1]] = append(f.comments[parts[1]], comment)
		json.NewEncoder(w).Encode(map[string]interface{}{"comment": comment})

	case len(parts) == 4 && parts[0] == "posts" && parts[2] == "comments" && r.Method == http.MethodDelete:
		kept := f.comments[parts[1]][:0]
		for _, c := range f.comments[parts[1]] {
			if c.ID != parts[3] {
				kept = append(kept, c)
			}
		}
		f.comments[parts[1]] = kept
		w.WriteHeader(http.StatusOK)

	case len(parts) == 2 && parts[0] == "posts" && r.Method == http.MethodGet:
		for _, p := range f.posts {
			if p.ID == parts[1] {
				json.NewEncoder(w).Encode(map[string]interface{}{"post": p})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "post not found"})

	case len(parts) == 2 && parts[0] == "profile":
		if f.profileStatus != 0 {
			w.WriteHeader(f.profileStatus)
			return
		}
		profile, ok := f.profiles[parts[1]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"profile": profile})

	case len(parts) == 3 && parts[0] == "profile" && parts[2] == "follow":
		profile := f.profiles[parts[1]]
		profile.Following = !profile.Following
		json.NewEncoder(w).Encode(map[string]interface{}{"profile": profile})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// newTestEnv wires a client, session and coordinator against the fake.
func newTestEnv(t *testing.T, loggedIn bool) (*fakeBackend, *api.Client, *session.Manager, *mutate.Coordinator) {
	t.Helper()
	backend := newFakeBackend(t)
	backend.loggedIn = loggedIn
	client := api.NewClient(backend.URL, nil)
	sess := session.NewManager(client)
	sess.Init(context.Background())
	return backend, client, sess, mutate.NewCoordinator(client, sess)
}

func TestHomeFavoriteFoldPreservesOrder(t *testing.T) {
	_, client, _, coord := newTestEnv(t, true)
	v := NewHomeView(client, coord)
	ctx := context.Background()
	v.Load(ctx)

	res := v.ToggleFavorite(ctx, "p2")
	if !res.Success {
		t.Fatalf("toggle failed: %s", res.Err)
	}

	posts := v.Posts().Data
	if len(posts) != 3 {
		t.Fatalf("len = %d", len(posts))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if posts[i].ID != want {
			t.Fatalf("order changed: posts[%d] = %s", i, posts[i].ID)
		}
	}
	if !posts[1].Favorited || posts[1].FavouritesCount != 1 {
		t.Fatalf("p2 not patched: %+v", posts[1])
	}
	if posts[0].Favorited || posts[2].Favorited {
		t.Fatal("untouched entries were modified")
	}
}

func TestHomeFavoriteFailureLeavesFeedUntouched(t *testing.T) {
	_, client, _, coord := newTestEnv(t, false)
	v := NewHomeView(client, coord)
	ctx := context.Background()
	v.Load(ctx)
	before := v.Posts().Data

	res := v.ToggleFavorite(ctx, "p2")
	if res.Success {
		t.Fatal("toggle should fail while signed out")
	}
	after := v.Posts().Data
	for i := range before {
		if before[i].Favorited != after[i].Favorited {
			t.Fatal("feed mutated on failed toggle")
		}
	}
}

func TestHomeLoadsTags(t *testing.T) {
	_, client, _, coord := newTestEnv(t, false)
	v := NewHomeView(client, coord)
	v.Load(context.Background())

	tags := v.Tags().Data
	if len(tags) != 2 || tags[0] != "go" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestPostCommentAppearsAfterRefetch(t *testing.T) {
	_, client, sess, coord := newTestEnv(t, true)
	v := NewPostView(client, sess, coord, "p1")
	ctx := context.Background()
	v.Load(ctx)

	res := v.AddComment(ctx, "well said")
	if !res.Success {
		t.Fatalf("add comment failed: %s", res.Err)
	}

	comments := v.Comments().Data
	if len(comments) != 2 {
		t.Fatalf("len = %d", len(comments))
	}
	// The id comes from the server, not from a local guess.
	if comments[1].ID != "c2" || comments[1].Body != "well said" {
		t.Fatalf("comment = %+v", comments[1])
	}
}

func TestDeletedCommentGoneAfterRefetch(t *testing.T) {
	backend, client, sess, coord := newTestEnv(t, true)
	backend.mu.Lock()
	backend.comments["p1"] = append(backend.comments["p1"],
		api.Comment{ID: "c5", Body: "mine", Author: api.Author{ID: "u1", Username: "alice"}})
	backend.mu.Unlock()

	v := NewPostView(client, sess, coord, "p1")
	ctx := context.Background()
	v.Load(ctx)

	res := v.DeleteComment(ctx, api.Comment{ID: "c5", Author: api.Author{ID: "u1"}})
	if !res.Success {
		t.Fatalf("delete failed: %s", res.Err)
	}
	for _, c := range v.Comments().Data {
		if c.ID == "c5" {
			t.Fatal("deleted comment still present after refetch")
		}
	}
}

func TestUnauthenticatedCommentBlockedBeforeRequest(t *testing.T) {
	backend, client, sess, coord := newTestEnv(t, false)
	v := NewPostView(client, sess, coord, "p1")
	ctx := context.Background()
	v.Load(ctx)

	res := v.AddComment(ctx, "drive-by")
	if res.Success {
		t.Fatal("comment should be blocked while signed out")
	}
	if n := backend.commentPosts.Load(); n != 0 {
		t.Fatalf("comment reached the network, %d posts", n)
	}
	if len(v.Comments().Data) != 1 {
		t.Fatal("comment collection changed on blocked write")
	}
}

func TestPostFavoriteRefetchesDetail(t *testing.T) {
	_, client, sess, coord := newTestEnv(t, true)
	v := NewPostView(client, sess, coord, "p2")
	ctx := context.Background()
	v.Load(ctx)

	res := v.ToggleFavorite(ctx)
	if !res.Success {
		t.Fatalf("toggle failed: %s", res.Err)
	}
	post := v.Post().Data
	if !post.Favorited || post.FavouritesCount != 1 {
		t.Fatalf("detail not refreshed: %+v", post)
	}
}

func TestIsAuthor(t *testing.T) {
	_, client, sess, coord := newTestEnv(t, true)
	ctx := context.Background()

	mine := NewPostView(client, sess, coord, "p1")
	mine.Load(ctx)
	if !mine.IsAuthor() {
		t.Fatal("alice wrote p1")
	}

	theirs := NewPostView(client, sess, coord, "p2")
	theirs.Load(ctx)
	if theirs.IsAuthor() {
		t.Fatal("alice did not write p2")
	}
}

func TestProfileAuthoredPostsFilter(t *testing.T) {
	_, client, sess, coord := newTestEnv(t, false)
	v := NewProfileView(client, sess, coord, "alice")
	v.Load(context.Background())

	authored := v.AuthoredPosts()
	if len(authored) != 2 || authored[0].ID != "p1" || authored[1].ID != "p3" {
		t.Fatalf("authored = %+v", authored)
	}
}

func TestFavoritedPostsOnlyForSelf(t *testing.T) {
	backend, client, sess, coord := newTestEnv(t, true)
	backend.mu.Lock()
	backend.user.FavouritePosts = []string{"p3"}
	backend.posts[1].Favorited = true // p2
	backend.mu.Unlock()
	sess.Init(context.Background())

	self := NewProfileView(client, sess, coord, "alice")
	self.Load(context.Background())
	favorited := self.FavoritedPosts()
	if len(favorited) != 2 || favorited[0].ID != "p2" || favorited[1].ID != "p3" {
		t.Fatalf("favorited = %+v", favorited)
	}

	other := NewProfileView(client, sess, coord, "bob")
	other.Load(context.Background())
	if got := other.FavoritedPosts(); got != nil {
		t.Fatalf("favorites shown on another user's profile: %+v", got)
	}
}

func TestAnonymousProfileViewGetsPlaceholder(t *testing.T) {
	backend, client, sess, coord := newTestEnv(t, false)
	backend.mu.Lock()
	backend.profileStatus = http.StatusUnauthorized
	backend.mu.Unlock()

	v := NewProfileView(client, sess, coord, "carol")
	v.Load(context.Background())

	snap := v.Profile()
	if snap.Err != "" {
		t.Fatalf("err = %q, want placeholder instead", snap.Err)
	}
	if snap.Data == nil || snap.Data.Username != "carol" || snap.Data.Name != "carol" {
		t.Fatalf("profile = %+v", snap.Data)
	}
}

func TestUnknownProfileSurfacesNotFound(t *testing.T) {
	_, client, sess, coord := newTestEnv(t, true)
	v := NewProfileView(client, sess, coord, "nobody")
	v.Load(context.Background())

	if got := v.Profile().Err; got != "User not found" {
		t.Fatalf("err = %q", got)
	}
}

func TestFollowReplacesProfileWholesale(t *testing.T) {
	_, client, sess, coord := newTestEnv(t, true)
	v := NewProfileView(client, sess, coord, "bob")
	v.Load(context.Background())

	res := v.ToggleFollow(context.Background())
	if !res.Success {
		t.Fatalf("follow failed: %s", res.Err)
	}
	profile := v.Profile().Data
	if !profile.Following {
		t.Fatalf("profile not replaced: %+v", profile)
	}
}

func TestIsSelf(t *testing.T) {
	_, client, sess, coord := newTestEnv(t, true)
	if !NewProfileView(client, sess, coord, "alice").IsSelf() {
		t.Fatal("alice's own profile")
	}
	if NewProfileView(client, sess, coord, "bob").IsSelf() {
		t.Fatal("bob is not the viewer")
	}
}
