package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/postify/postify-client/internal/api"
	"github.com/postify/postify-client/internal/config"
	"github.com/postify/postify-client/internal/credstore"
	"github.com/postify/postify-client/internal/mutate"
	"github.com/postify/postify-client/internal/search"
	"github.com/postify/postify-client/internal/session"
	"github.com/postify/postify-client/internal/views"
	"github.com/postify/postify-client/internal/web"
)

// app wires the shared pieces every command needs: one API client, one
// session manager, one mutation coordinator.
type app struct {
	cfg     *config.Config
	store   *credstore.Store
	origin  *url.URL
	client  *api.Client
	session *session.Manager
	coord   *mutate.Coordinator
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	a, err := setup()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer a.store.Close()

	ctx := context.Background()
	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "login":
		a.runLogin(ctx, args)
	case "register":
		a.runRegister(ctx, args)
	case "logout":
		a.runLogout(ctx)
	case "whoami":
		a.runWhoami(ctx)
	case "refresh":
		a.runRefresh(ctx)
	case "feed":
		a.runFeed(ctx)
	case "post":
		requireArg(args, "post id", "postify post <id>")
		a.runPost(ctx, args[0])
	case "favorite":
		requireArg(args, "post id", "postify favorite <id>")
		a.runFavorite(ctx, args[0])
	case "follow":
		requireArg(args, "username", "postify follow <username>")
		a.runFollow(ctx, args[0])
	case "profile":
		requireArg(args, "username", "postify profile [-tab=authored|favorited] <username>")
		a.runProfile(ctx, args)
	case "comment":
		a.runComment(ctx, args)
	case "uncomment":
		if len(args) < 2 {
			fmt.Println("Usage: postify uncomment <post-id> <comment-id>")
			os.Exit(1)
		}
		a.runUncomment(ctx, args[0], args[1])
	case "publish":
		a.runPublish(ctx, args)
	case "edit":
		requireArg(args, "post id", "postify edit <id> [flags]")
		a.runEdit(ctx, args[0], args[1:])
	case "delete":
		requireArg(args, "post id", "postify delete <id>")
		a.runDelete(ctx, args[0])
	case "settings":
		a.runSettings(ctx, args)
	case "search":
		requireArg(args, "query", "postify search <query>")
		a.runSearch(ctx, strings.Join(args, " "))
	case "serve":
		a.runServe(ctx, args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Postify - a command-line client for the Postify blogging service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  postify <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login                      Sign in (prompts for credentials)")
	fmt.Println("  register                   Create an account")
	fmt.Println("  logout                     Sign out and drop the saved session")
	fmt.Println("  whoami                     Show the signed-in user")
	fmt.Println("  refresh                    Extend the server-side session")
	fmt.Println("  feed                       Show the global post feed and tags")
	fmt.Println("  post <id>                  Show a post with its comments")
	fmt.Println("  favorite <id>              Toggle your favorite on a post")
	fmt.Println("  follow <username>          Toggle following a user")
	fmt.Println("  profile <username>         Show a profile (-tab=authored|favorited)")
	fmt.Println("  comment <id> -body=<text>  Comment on a post")
	fmt.Println("  uncomment <id> <cid>       Delete your comment")
	fmt.Println("  publish [flags]            Publish a post (-title -description -body -tags)")
	fmt.Println("  edit <id> [flags]          Update a post you wrote")
	fmt.Println("  delete <id>                Delete a post you wrote")
	fmt.Println("  settings [flags]           Update account settings (only given flags travel)")
	fmt.Println("  search <query>             Search the fetched feed locally")
	fmt.Println("  serve [-addr]              Start the local web front")
	fmt.Println()
	fmt.Println("Configuration (environment or .env):")
	fmt.Println("  POSTIFY_API_URL      API base URL (required)")
	fmt.Println("  POSTIFY_DATA_DIR     Where the saved session lives (default: ./data)")
	fmt.Println("  POSTIFY_LISTEN_ADDR  Address for serve (default: localhost:8975)")
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	store, err := credstore.Open(filepath.Join(cfg.DataDir, "credentials.db"))
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	origin, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse POSTIFY_API_URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cookies, err := store.Load(origin)
	if err != nil {
		log.Printf("Warning: could not load saved session: %v", err)
	}
	if len(cookies) > 0 {
		jar.SetCookies(origin, cookies)
	}

	client := api.NewClient(cfg.APIURL, jar)
	sess := session.NewManager(client)
	return &app{
		cfg:     cfg,
		store:   store,
		origin:  origin,
		client:  client,
		session: sess,
		coord:   mutate.NewCoordinator(client, sess),
	}, nil
}

// persist saves the cookie jar so the session survives this invocation.
func (a *app) persist() {
	if err := a.store.Save(a.origin, a.client.Jar().Cookies(a.origin)); err != nil {
		log.Printf("Warning: could not save session: %v", err)
	}
}

func requireArg(args []string, what, usage string) {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		fmt.Printf("Error: %s required\n", what)
		fmt.Println("Usage: " + usage)
		os.Exit(1)
	}
}

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// --- Auth commands ---

func (a *app) runLogin(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	username := flags.String("username", "", "Username")
	flags.Parse(args)

	form := session.Form{Username: *username}
	if form.Username == "" {
		form.Username = prompt("Username")
	}
	form.Password = prompt("Password")

	if res := a.session.Login(ctx, form); !res.Success {
		log.Fatalf("Login failed: %s", res.Err)
	}
	a.persist()
	fmt.Printf("Signed in as %s\n", a.session.CurrentUser().Username)
}

func (a *app) runRegister(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("register", flag.ExitOnError)
	username := flags.String("username", "", "Username")
	name := flags.String("name", "", "Full name")
	email := flags.String("email", "", "Email address")
	flags.Parse(args)

	form := session.Form{Username: *username, Name: *name, Email: *email}
	if form.Username == "" {
		form.Username = prompt("Username")
	}
	if form.Name == "" {
		form.Name = prompt("Full name")
	}
	if form.Email == "" {
		form.Email = prompt("Email")
	}
	form.Password = prompt("Password")
	form.ConfirmPassword = prompt("Confirm password")

	if res := a.session.Register(ctx, form); !res.Success {
		log.Fatalf("Registration failed: %s", res.Err)
	}
	a.persist()
	fmt.Printf("Welcome, %s! You are signed in.\n", a.session.CurrentUser().Username)
}

func (a *app) runLogout(ctx context.Context) {
	a.session.Init(ctx)
	if res := a.session.Logout(ctx); !res.Success {
		log.Fatalf("Logout failed: %s", res.Err)
	}
	if err := a.store.Clear(a.origin); err != nil {
		log.Printf("Warning: could not clear saved session: %v", err)
	}
	fmt.Println("Signed out.")
}

func (a *app) runWhoami(ctx context.Context) {
	a.session.Init(ctx)
	snap := a.session.Snapshot()
	if snap.Status != session.StatusAuthenticated {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("Username: %s\n", snap.User.Username)
	fmt.Printf("Name:     %s\n", snap.User.Name)
	fmt.Printf("Email:    %s\n", snap.User.Email)
	if snap.User.Bio != "" {
		fmt.Printf("Bio:      %s\n", snap.User.Bio)
	}
}

func (a *app) runRefresh(ctx context.Context) {
	a.session.Init(ctx)
	if res := a.session.RefreshToken(ctx); !res.Success {
		log.Fatalf("Refresh failed: %s", res.Err)
	}
	a.persist()
	fmt.Println("Session extended.")
}

// --- Read commands ---

func (a *app) runFeed(ctx context.Context) {
	a.session.Init(ctx)
	home := views.NewHomeView(a.client, a.coord)
	home.Load(ctx)

	posts := home.Posts()
	if posts.Err != "" {
		log.Fatalf("Error loading feed: %s", posts.Err)
	}
	if len(posts.Data) == 0 {
		fmt.Println("No posts found.")
	}
	for _, p := range posts.Data {
		printPostLine(p)
	}

	tags := home.Tags()
	if len(tags.Data) > 0 {
		fmt.Printf("\nPopular tags: %s\n", strings.Join(tags.Data, ", "))
	}
}

func printPostLine(p api.Post) {
	marker := " "
	if p.Favorited {
		marker = "*"
	}
	fmt.Printf("%s %-24s  %-20s  by %-16s  ♥ %d\n",
		marker, p.ID, truncate(p.Title, 20), p.Author.Username, p.FavouritesCount)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func (a *app) runPost(ctx context.Context, id string) {
	a.session.Init(ctx)
	view := views.NewPostView(a.client, a.session, a.coord, id)
	view.Load(ctx)

	post := view.Post()
	if post.Err != "" {
		log.Fatalf("Error loading post: %s", post.Err)
	}
	if post.Data == nil {
		log.Fatalf("Post not found: %s", id)
	}

	p := post.Data
	fmt.Printf("%s\n", p.Title)
	fmt.Printf("by %s · %s · ♥ %d\n\n", p.Author.Username, p.CreatedAt, p.FavouritesCount)
	if p.Description != "" {
		fmt.Printf("%s\n\n", p.Description)
	}
	fmt.Println(p.Body)
	if len(p.TagList) > 0 {
		fmt.Printf("\nTags: %s\n", strings.Join(p.TagList, ", "))
	}

	comments := view.Comments()
	fmt.Printf("\nComments (%d):\n", len(comments.Data))
	for _, c := range comments.Data {
		fmt.Printf("  [%s] %s: %s\n", c.ID, c.Author.Username, c.Body)
	}
	if !a.session.IsAuthenticated() {
		fmt.Println("\nSign in (postify login) to comment or favorite.")
	}
}

func (a *app) runProfile(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("profile", flag.ExitOnError)
	tab := flags.String("tab", "authored", "Which tab to show: authored or favorited")
	username := args[0]
	flags.Parse(args[1:])

	a.session.Init(ctx)
	view := views.NewProfileView(a.client, a.session, a.coord, username)
	view.Load(ctx)

	profile := view.Profile()
	if profile.Err != "" {
		log.Fatalf("Error: %s", profile.Err)
	}
	p := profile.Data
	name := p.Name
	if name == "" {
		name = p.Username
	}
	fmt.Printf("%s (@%s)\n", name, p.Username)
	if p.Bio != "" {
		fmt.Println(p.Bio)
	}
	if p.Following {
		fmt.Println("You follow this user.")
	}

	var posts []api.Post
	if *tab == "favorited" {
		posts = view.FavoritedPosts()
		fmt.Println("\nFavorited posts:")
	} else {
		posts = view.AuthoredPosts()
		fmt.Println("\nPosts:")
	}
	if len(posts) == 0 {
		fmt.Println("  (none)")
	}
	for _, post := range posts {
		printPostLine(post)
	}
}

func (a *app) runSearch(ctx context.Context, query string) {
	posts, err := a.client.ListPosts(ctx)
	if err != nil {
		log.Fatalf("Error loading feed: %v", err)
	}

	idx, err := search.New(posts)
	if err != nil {
		log.Fatalf("Error building index: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(query, 20)
	if err != nil {
		log.Fatalf("Error searching: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s\n", i+1, result.Title)
		fmt.Printf("   Author: %s\n", result.Author)
		fmt.Printf("   ID: %s  Score: %.3f\n", result.ID, result.Score)
		if snippets, ok := result.Fragments["Body"]; ok && len(snippets) > 0 {
			fmt.Printf("   Preview: %s\n", snippets[0])
		}
		fmt.Println()
	}
}

// --- Write commands ---

func (a *app) runFavorite(ctx context.Context, id string) {
	a.session.Init(ctx)
	home := views.NewHomeView(a.client, a.coord)
	home.Load(ctx)

	res := home.ToggleFavorite(ctx, id)
	if !res.Success {
		log.Fatalf("Error: %s", res.Err)
	}
	for _, p := range home.Posts().Data {
		if p.ID == id {
			state := "unfavorited"
			if p.Favorited {
				state = "favorited"
			}
			fmt.Printf("Post %s %s (♥ %d)\n", id, state, p.FavouritesCount)
			return
		}
	}
	fmt.Printf("Post %s favorite toggled\n", id)
}

func (a *app) runFollow(ctx context.Context, username string) {
	a.session.Init(ctx)
	profile, res := a.coord.ToggleFollow(ctx, username)
	if !res.Success {
		log.Fatalf("Error: %s", res.Err)
	}
	if profile.Following {
		fmt.Printf("Now following %s\n", profile.Username)
	} else {
		fmt.Printf("Unfollowed %s\n", profile.Username)
	}
}

func (a *app) runComment(ctx context.Context, args []string) {
	requireArg(args, "post id", "postify comment <id> -body=<text>")
	postID := args[0]
	flags := flag.NewFlagSet("comment", flag.ExitOnError)
	body := flags.String("body", "", "Comment body")
	flags.Parse(args[1:])

	a.session.Init(ctx)
	view := views.NewPostView(a.client, a.session, a.coord, postID)
	view.Load(ctx)

	text := *body
	if text == "" {
		text = prompt("Comment")
	}
	if res := view.AddComment(ctx, text); !res.Success {
		log.Fatalf("Error: %s", res.Err)
	}
	fmt.Printf("Comment posted. %d comments on post %s.\n", len(view.Comments().Data), postID)
}

func (a *app) runUncomment(ctx context.Context, postID, commentID string) {
	a.session.Init(ctx)
	view := views.NewPostView(a.client, a.session, a.coord, postID)
	view.Load(ctx)

	for _, c := range view.Comments().Data {
		if c.ID == commentID {
			if res := view.DeleteComment(ctx, c); !res.Success {
				log.Fatalf("Error: %s", res.Err)
			}
			fmt.Println("Comment deleted.")
			return
		}
	}
	log.Fatalf("Comment not found: %s", commentID)
}

func (a *app) runPublish(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("publish", flag.ExitOnError)
	title := flags.String("title", "", "Post title")
	description := flags.String("description", "", "Short description")
	body := flags.String("body", "", "Post body")
	tags := flags.String("tags", "", "Comma-separated tags")
	flags.Parse(args)

	a.session.Init(ctx)
	post, res := a.coord.CreatePost(ctx, api.PostDraft{
		Title:       *title,
		Description: *description,
		Body:        *body,
		TagList:     splitTags(*tags),
	})
	if !res.Success {
		log.Fatalf("Error: %s", res.Err)
	}
	fmt.Printf("Published: %s (id %s)\n", post.Title, post.ID)
}

func (a *app) runEdit(ctx context.Context, id string, args []string) {
	flags := flag.NewFlagSet("edit", flag.ExitOnError)
	title := flags.String("title", "", "Post title")
	description := flags.String("description", "", "Short description")
	body := flags.String("body", "", "Post body")
	tags := flags.String("tags", "", "Comma-separated tags")
	flags.Parse(args)

	a.session.Init(ctx)
	existing, err := a.client.GetPost(ctx, id)
	if err != nil || existing == nil {
		log.Fatalf("Post not found: %s", id)
	}

	// Flags left empty keep the current value.
	draft := api.PostDraft{
		Title:       *title,
		Description: *description,
		Body:        *body,
		TagList:     existing.TagList,
	}
	if draft.Title == "" {
		draft.Title = existing.Title
	}
	if draft.Description == "" {
		draft.Description = existing.Description
	}
	if draft.Body == "" {
		draft.Body = existing.Body
	}
	if *tags != "" {
		draft.TagList = splitTags(*tags)
	}

	post, res := a.coord.UpdatePost(ctx, *existing, draft)
	if !res.Success {
		log.Fatalf("Error: %s", res.Err)
	}
	fmt.Printf("Updated: %s\n", post.Title)
}

func (a *app) runDelete(ctx context.Context, id string) {
	a.session.Init(ctx)
	post, err := a.client.GetPost(ctx, id)
	if err != nil || post == nil {
		log.Fatalf("Post not found: %s", id)
	}
	if res := a.coord.DeletePost(ctx, *post); !res.Success {
		log.Fatalf("Error: %s", res.Err)
	}
	fmt.Println("Post deleted.")
}

func (a *app) runSettings(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("settings", flag.ExitOnError)
	name := flags.String("name", "", "Full name")
	email := flags.String("email", "", "Email address")
	bio := flags.String("bio", "", "Profile bio")
	image := flags.String("image", "", "Profile image URL")
	password := flags.String("password", "", "New password")
	flags.Parse(args)

	// Only flags the user actually passed travel to the server.
	changes := map[string]interface{}{}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			changes["name"] = *name
		case "email":
			changes["email"] = *email
		case "bio":
			changes["bio"] = *bio
		case "image":
			changes["image"] = *image
		case "password":
			changes["password"] = *password
		}
	})
	if len(changes) == 0 {
		fmt.Println("Nothing to change.")
		return
	}

	a.session.Init(ctx)
	if res := a.session.UpdateSettings(ctx, changes); !res.Success {
		log.Fatalf("Error: %s", res.Err)
	}
	fmt.Println("Settings saved.")
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// --- Web front ---

func (a *app) runServe(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", a.cfg.ListenAddr, "Address to listen on")
	flags.Parse(args)

	a.session.Init(ctx)
	server, err := web.NewServer(a.client, a.session, a.coord, a.store)
	if err != nil {
		log.Fatalf("Error creating server: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Postify Web Front ===")
	fmt.Printf("Running at: http://%s\n", *addr)
	fmt.Printf("API:        %s\n", a.cfg.APIURL)
	if user := a.session.CurrentUser(); user != nil {
		fmt.Printf("Signed in:  %s\n", user.Username)
	} else {
		fmt.Println("Signed in:  (anonymous)")
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	if err := http.ListenAndServe(*addr, server); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
