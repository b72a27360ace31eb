// Package web is the local browser front: server-rendered screens over
// the shared session and view state. Every page load refetches from the
// API, so cross-screen consistency is refetch-on-navigation.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/postify/postify-client/internal/api"
	"github.com/postify/postify-client/internal/credstore"
	"github.com/postify/postify-client/internal/mutate"
	"github.com/postify/postify-client/internal/search"
	"github.com/postify/postify-client/internal/session"
	"github.com/postify/postify-client/internal/views"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server renders the screens and translates form posts into mutations.
type Server struct {
	client    *api.Client
	session   *session.Manager
	coord     *mutate.Coordinator
	store     *credstore.Store
	origin    *url.URL
	router    chi.Router
	templates *template.Template
}

// NewServer creates the web front. The credential store may be nil when
// cookie persistence is not wanted.
func NewServer(client *api.Client, sess *session.Manager, coord *mutate.Coordinator, store *credstore.Store) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	origin, err := url.Parse(client.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	s := &Server{
		client:    client,
		session:   sess,
		coord:     coord,
		store:     store,
		origin:    origin,
		templates: tmpl,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleAuthPage("login"))
	r.Post("/login", s.handleLogin)
	r.Get("/register", s.handleAuthPage("register"))
	r.Post("/register", s.handleRegister)
	r.Post("/logout", s.handleLogout)

	r.Get("/post/{id}", s.handlePost)
	r.Post("/post/{id}/favorite", s.handleFavorite)
	r.Post("/post/{id}/comments", s.handleAddComment)
	r.Post("/post/{id}/comments/{commentID}/delete", s.handleDeleteComment)
	r.Post("/post/{id}/delete", s.handleDeletePost)

	r.Get("/profile/{username}", s.handleProfile)
	r.Post("/profile/{username}/follow", s.handleFollow)

	r.Get("/editor", s.handleEditorPage)
	r.Get("/editor/{id}", s.handleEditorPage)
	r.Post("/editor", s.handleEditorSubmit)
	r.Post("/editor/{id}", s.handleEditorSubmit)

	r.Get("/settings", s.handleSettingsPage)
	r.Post("/settings", s.handleSettingsSubmit)

	r.Get("/health", s.handleHealth)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["User"] = s.session.CurrentUser()
	data["IsAuthenticated"] = s.session.IsAuthenticated()
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// persistCookies saves the session cookie after auth state changed.
func (s *Server) persistCookies() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.origin, s.client.Jar().Cookies(s.origin)); err != nil {
		log.Printf("Warning: failed to persist session: %v", err)
	}
}

func redirectWithError(w http.ResponseWriter, r *http.Request, to, msg string) {
	if msg != "" {
		to += "?error=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// --- Screens ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home := views.NewHomeView(s.client, s.coord)
	home.Load(r.Context())
	postsSnap := home.Posts()
	tagsSnap := home.Tags()

	posts := postsSnap.Data
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var searchErr string
	if query != "" {
		filtered, err := filterPosts(posts, query)
		if err != nil {
			searchErr = "Search failed"
		} else {
			posts = filtered
		}
	}

	s.render(w, "home.html", map[string]interface{}{
		"Posts":     posts,
		"PostsErr":  postsSnap.Err,
		"Tags":      tagsSnap.Data,
		"Query":     query,
		"SearchErr": searchErr,
		"Error":     r.URL.Query().Get("error"),
	})
}

// filterPosts keeps the feed entries matched by the in-memory index,
// preserving feed order.
func filterPosts(posts []api.Post, query string) ([]api.Post, error) {
	idx, err := search.New(posts)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	hits, err := idx.Search(query, len(posts))
	if err != nil {
		return nil, err
	}
	matched := make(map[string]bool, len(hits))
	for _, h := range hits {
		matched[h.ID] = true
	}
	var out []api.Post
	for _, p := range posts {
		if matched[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view := views.NewPostView(s.client, s.session, s.coord, id)
	view.Load(r.Context())

	postSnap := view.Post()
	if postSnap.Data == nil {
		http.NotFound(w, r)
		return
	}
	commentsSnap := view.Comments()

	user := s.session.CurrentUser()
	s.render(w, "post.html", map[string]interface{}{
		"Post":        postSnap.Data,
		"Comments":    commentsSnap.Data,
		"CommentsErr": commentsSnap.Err,
		"IsAuthor":    view.IsAuthor(),
		"ViewerID":    viewerID(user),
		"Error":       r.URL.Query().Get("error"),
	})
}

func viewerID(user *api.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	view := views.NewProfileView(s.client, s.session, s.coord, username)
	view.Load(r.Context())

	profileSnap := view.Profile()
	if profileSnap.Err != "" {
		s.render(w, "profile.html", map[string]interface{}{"Error": profileSnap.Err})
		return
	}

	tab := r.URL.Query().Get("tab")
	var posts []api.Post
	if tab == "favorited" {
		posts = view.FavoritedPosts()
	} else {
		tab = "authored"
		posts = view.AuthoredPosts()
	}

	s.render(w, "profile.html", map[string]interface{}{
		"Profile": profileSnap.Data,
		"Posts":   posts,
		"Tab":     tab,
		"IsSelf":  view.IsSelf(),
		"Error":   r.URL.Query().Get("error"),
	})
}

// --- Auth ---

func (s *Server) handleAuthPage(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, "auth.html", map[string]interface{}{
			"Mode":  mode,
			"Error": r.URL.Query().Get("error"),
		})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	res := s.session.Login(r.Context(), session.Form{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	})
	if !res.Success {
		redirectWithError(w, r, "/login", res.Err)
		return
	}
	s.persistCookies()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	res := s.session.Register(r.Context(), session.Form{
		Username:        r.FormValue("username"),
		Name:            r.FormValue("name"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
	})
	if !res.Success {
		redirectWithError(w, r, "/register", res.Err)
		return
	}
	s.persistCookies()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	res := s.session.Logout(r.Context())
	if res.Success && s.store != nil {
		if err := s.store.Clear(s.origin); err != nil {
			log.Printf("Warning: failed to clear saved session: %v", err)
		}
	}
	redirectWithError(w, r, "/", res.Err)
}

// --- Mutations ---

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, res := s.coord.ToggleFavorite(r.Context(), id)
	redirectWithError(w, r, backTo(r, "/post/"+id), res.Err)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	_, res := s.coord.ToggleFollow(r.Context(), username)
	redirectWithError(w, r, "/profile/"+username, res.Err)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := s.coord.AddComment(r.Context(), id, r.FormValue("body"))
	redirectWithError(w, r, "/post/"+id, res.Err)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentID")

	comments, err := s.client.ListComments(r.Context(), id)
	if err != nil {
		redirectWithError(w, r, "/post/"+id, "Failed to load comments")
		return
	}
	for _, c := range comments {
		if c.ID == commentID {
			res := s.coord.DeleteComment(r.Context(), id, c)
			redirectWithError(w, r, "/post/"+id, res.Err)
			return
		}
	}
	redirectWithError(w, r, "/post/"+id, "Comment not found")
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := s.client.GetPost(r.Context(), id)
	if err != nil || post == nil {
		redirectWithError(w, r, "/", "Post not found")
		return
	}
	res := s.coord.DeletePost(r.Context(), *post)
	if !res.Success {
		redirectWithError(w, r, "/post/"+id, res.Err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- Editor ---

func (s *Server) handleEditorPage(w http.ResponseWriter, r *http.Request) {
	if !s.session.IsAuthenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	data := map[string]interface{}{
		"Error": r.URL.Query().Get("error"),
		"Tags":  "",
	}
	if id := chi.URLParam(r, "id"); id != "" {
		post, err := s.client.GetPost(r.Context(), id)
		if err != nil || post == nil {
			http.NotFound(w, r)
			return
		}
		data["Post"] = post
		data["Tags"] = strings.Join(post.TagList, ", ")
	}
	s.render(w, "editor.html", data)
}

func (s *Server) handleEditorSubmit(w http.ResponseWriter, r *http.Request) {
	draft := api.PostDraft{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Body:        r.FormValue("body"),
		TagList:     splitTags(r.FormValue("tags")),
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		post, res := s.coord.CreatePost(r.Context(), draft)
		if !res.Success {
			redirectWithError(w, r, "/editor", res.Err)
			return
		}
		http.Redirect(w, r, "/post/"+post.ID, http.StatusSeeOther)
		return
	}

	existing, err := s.client.GetPost(r.Context(), id)
	if err != nil || existing == nil {
		http.NotFound(w, r)
		return
	}
	post, res := s.coord.UpdatePost(r.Context(), *existing, draft)
	if !res.Success {
		redirectWithError(w, r, "/editor/"+id, res.Err)
		return
	}
	http.Redirect(w, r, "/post/"+post.ID, http.StatusSeeOther)
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// --- Settings ---

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	if !s.session.IsAuthenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.render(w, "settings.html", map[string]interface{}{
		"Error": r.URL.Query().Get("error"),
		"Saved": r.URL.Query().Get("saved") != "",
	})
}

func (s *Server) handleSettingsSubmit(w http.ResponseWriter, r *http.Request) {
	user := s.session.CurrentUser()
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// Only changed fields travel.
	changes := map[string]interface{}{}
	if v := r.FormValue("name"); v != user.Name {
		changes["name"] = v
	}
	if v := r.FormValue("email"); v != user.Email {
		changes["email"] = v
	}
	if v := r.FormValue("bio"); v != user.Bio {
		changes["bio"] = v
	}
	if v := r.FormValue("image"); v != user.Image {
		changes["image"] = v
	}
	if v := r.FormValue("password"); v != "" {
		changes["password"] = v
	}

	res := s.session.UpdateSettings(r.Context(), changes)
	if !res.Success {
		redirectWithError(w, r, "/settings", res.Err)
		return
	}
	http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// backTo returns the Referer path when it points at this site, else the
// fallback.
func backTo(r *http.Request, fallback string) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" {
		return fallback
	}
	return u.Path
}
