package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"socialapp/internal/api"
	"socialapp/internal/config"
	"socialapp/internal/credentials"
	"socialapp/internal/db"
	"socialapp/internal/guard"
	"socialapp/internal/models"
	"socialapp/internal/oauth"
	"socialapp/internal/posts"
	"socialapp/internal/session"
)

type app struct {
	sess  *session.Store
	posts *posts.Store
	flow  *oauth.Flow
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	database, err := db.Open(cfg.CredentialsPath)
	if err != nil {
		log.Fatal(err)
	}
	creds := credentials.New(database)
	gw, err := api.New(cfg.APIURL, creds)
	if err != nil {
		log.Fatal(err)
	}
	broker, err := api.NewWithClient(cfg.AuthServerURL, creds, gw.Client())
	if err != nil {
		log.Fatal(err)
	}
	a := &app{
		sess:  session.New(gw, creds),
		posts: posts.New(gw),
		flow: &oauth.Flow{
			App:       gw,
			Broker:    broker,
			Client:    gw.Client(),
			GithubAPI: cfg.GithubAPIURL,
			GoogleAPI: cfg.GoogleAPIURL,
		},
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "register":
		a.register(ctx, os.Args[2:])
	case "login":
		a.login(ctx, os.Args[2:])
	case "logout":
		a.sess.Logout(ctx)
		fmt.Println("Logged out.")
	case "me":
		a.me(ctx)
	case "posts":
		a.list(ctx)
	case "create":
		a.create(ctx, os.Args[2:])
	case "update":
		a.update(ctx, os.Args[2:])
	case "delete":
		a.delete(ctx, os.Args[2:])
	case "oauth":
		a.oauth(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: social <command> [flags]

commands:
  register  -name -username -email -password
  login     -username -password
  logout
  me
  posts
  create    -title -content [-image]
  update    -id -title -content [-image]
  delete    -id
  oauth     <callback path, e.g. /v1/profile/github>`)
}

func (a *app) register(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)
	st := a.sess.Register(ctx, *name, *username, *email, *password)
	if st.Status == models.StatusFailed {
		log.Fatal(st.Error)
	}
	// Registration never authenticates; the user logs in next.
	fmt.Println("Registration successful! Please login.")
}

func (a *app) login(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	fs.Parse(args)
	st := a.sess.Login(ctx, *username, *password)
	if st.Status == models.StatusFailed {
		log.Fatal(st.Error)
	}
	fmt.Printf("Logged in as %s\n", st.User.Username)
}

func (a *app) me(ctx context.Context) {
	st := a.sess.Restore(ctx)
	if !st.IsAuthenticated {
		log.Fatal("Not logged in.")
	}
	if st.Status == models.StatusFailed {
		log.Printf("warning: %s", st.Error)
	}
	fmt.Printf("%s (%s)\n", st.User.Username, st.User.ID)
}

// requireAuth confirms the session with the backend and applies the
// route guard before a protected command runs.
func (a *app) requireAuth(ctx context.Context, origin string) {
	st := a.sess.Restore(ctx)
	d := guard.Decide(st, origin)
	if d.Action == guard.Redirect {
		log.Fatalf("Please login first (would redirect to %s).", d.To)
	}
}

func (a *app) list(ctx context.Context) {
	snap := a.posts.List(ctx)
	if snap.Status == models.StatusFailed {
		log.Fatal(snap.Error)
	}
	for _, p := range snap.Posts {
		fmt.Printf("%s  %s  by %s\n", p.ID, p.Title, p.Author.Username)
	}
}

func (a *app) create(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "post title")
	content := fs.String("content", "", "post body")
	image := fs.String("image", "", "image URL")
	fs.Parse(args)
	draft := models.PostDraft{Title: *title, Content: *content, Image: *image}
	// Validation errors block submission before any network call.
	if err := draft.Validate(); err != nil {
		log.Fatal(err)
	}
	a.requireAuth(ctx, "/create")
	snap := a.posts.Create(ctx, draft)
	if snap.Status == models.StatusFailed {
		log.Fatal(snap.Error)
	}
	fmt.Printf("Created %s\n", snap.Posts[0].ID)
}

func (a *app) update(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "post id")
	title := fs.String("title", "", "post title")
	content := fs.String("content", "", "post body")
	image := fs.String("image", "", "image URL")
	fs.Parse(args)
	draft := models.PostDraft{Title: *title, Content: *content, Image: *image}
	if err := draft.Validate(); err != nil {
		log.Fatal(err)
	}
	a.requireAuth(ctx, "/edit/"+*id)
	snap := a.posts.Update(ctx, *id, draft)
	if snap.Status == models.StatusFailed {
		log.Fatal(snap.Error)
	}
	fmt.Println("Updated.")
}

func (a *app) delete(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "post id")
	fs.Parse(args)
	a.requireAuth(ctx, "/posts")
	snap := a.posts.Delete(ctx, *id)
	if snap.Status == models.StatusFailed {
		log.Fatal(snap.Error)
	}
	fmt.Println("Deleted.")
}

func (a *app) oauth(ctx context.Context, args []string) {
	if len(args) < 1 {
		log.Fatal("oauth: callback path required")
	}
	out := a.flow.Run(ctx, args[0], func(next string) {
		fmt.Printf("Navigating to %s\n", next)
	})
	if out.Profile != nil {
		name := out.Profile.Name
		if name == "" {
			name = out.Profile.Login
		}
		fmt.Printf("Authentication successful! Welcome %s\n", name)
	}
}
