package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gallery-complete/client"
	"gallery-complete/gallery"
	"gallery-complete/handlers/api/images"
	"gallery-complete/handlers/auth"
	authMiddleware "gallery-complete/middleware"
	"gallery-complete/session"
	"gallery-complete/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const usage = `usage: gallery-complete <command> [flags]

server:
  serve            run the gallery backend

client:
  login            sign in and store the session
  register         create an account (email OTP verification)
  forgot-password  reset a password with an emailed OTP
  logout           drop the stored session
  list             print the gallery in display order
  upload           upload image files (repeat -title per file)
  rm               delete an image by id
  mv               move an image from one position to another
  edit             change an image's title and/or replace its file
`

func setupRouter(store stores.Store) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "Host", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", auth.HandleLogin(store))
		r.Post("/send-otp", auth.HandleSendOTP(store))
		r.Post("/verify-otp", auth.HandleVerifyOTP(store))
		r.Post("/forgot-password", auth.HandleForgotPassword(store))
		r.Post("/reset-password", auth.HandleResetPassword(store))
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT)
		r.Get("/images/{ownerId}", images.HandleList(store))
		r.Post("/images/upload", images.HandleUpload(store))
		r.Put("/images/reorder", images.HandleReorder(store))
		r.Put("/images/{id}", images.HandleUpdate(store))
		r.Delete("/images/{id}", images.HandleDelete(store))
	})

	// Media is public: image elements cannot attach bearer headers.
	r.Get("/media/{id}", images.HandleMedia(store, false))
	r.Get("/media/{id}/thumb", images.HandleMedia(store, true))

	return r
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listenAddress := fs.String("listen", ":3002", "The address to listen on.")
	logLevel := fs.String("loglevel", "info", "The log level (debug, info, warn, error).")
	fs.Parse(args)

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)

	auth.InitAuth()
	store := stores.GetStore()
	r := setupRouter(store)

	srv := &http.Server{Addr: *listenAddress, Handler: r}
	go func() {
		logrus.WithField("addr", *listenAddress).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sigC
	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

type clientEnv struct {
	sess *session.Session
	cli  *client.Client
}

func newClientEnv() *clientEnv {
	sess, err := session.Open(session.DefaultPath())
	if err != nil {
		logrus.Fatal(err)
	}
	baseURL := os.Getenv("GALLERY_API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3002"
	}
	return &clientEnv{sess: sess, cli: client.New(baseURL, sess)}
}

// manager builds the collection manager for the signed-in user. Owner id is
// supplied once, here; core operations never look it up again.
func (e *clientEnv) manager() *gallery.Manager {
	if !e.sess.Authenticated() {
		logrus.Fatal("Not signed in. Run 'gallery-complete login' first.")
	}
	return gallery.New(e.cli, e.sess.OwnerID())
}

func prompt(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

type stringList []string

func (l *stringList) String() string     { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error { *l = append(*l, v); return nil }

func runLogin(env *clientEnv, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *password == "" {
		*password = prompt("Password: ")
	}
	if err := env.cli.Login(context.Background(), *email, *password); err != nil {
		logrus.Fatal(err)
	}
	fmt.Println("Signed in as", env.sess.OwnerID())
}

func runRegister(env *clientEnv, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "display name")
	email := fs.String("email", "", "account email")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *password == "" {
		*password = prompt("Password: ")
	}
	ctx := context.Background()
	if err := env.cli.SendOTP(ctx, *email); err != nil {
		logrus.Fatal(err)
	}
	otp := prompt("OTP sent to your email. Enter it: ")
	err := env.cli.VerifyOTP(ctx, *email, otp, client.Registration{
		Username:        *username,
		Email:           *email,
		Phone:           *phone,
		Password:        *password,
		ConfirmPassword: *password,
	})
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Println("Registration successful. You can now log in.")
}

func runForgotPassword(env *clientEnv, args []string) {
	fs := flag.NewFlagSet("forgot-password", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	ctx := context.Background()
	if err := env.cli.ForgotPassword(ctx, *email); err != nil {
		logrus.Fatal(err)
	}
	otp := prompt("OTP sent to your email. Enter it: ")
	newPassword := prompt("New password: ")
	if err := env.cli.ResetPassword(ctx, *email, otp, newPassword); err != nil {
		logrus.Fatal(err)
	}
	fmt.Println("Password reset successfully.")
}

func runList(env *clientEnv) {
	mgr := env.manager()
	if err := mgr.Load(context.Background()); err != nil {
		logrus.Fatal(err)
	}
	items := mgr.Items()
	if len(items) == 0 {
		fmt.Println("Gallery is empty.")
		return
	}
	for _, item := range items {
		fmt.Printf("%3d  %-26s  %-20s  %s\n", item.Order, item.ID, item.Title, item.ImageURL)
	}
}

func runUpload(env *clientEnv, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	var titles stringList
	fs.Var(&titles, "title", "draft title for the next file (repeatable, positional)")
	fs.Parse(args)
	files := fs.Args()
	if len(files) == 0 {
		logrus.Fatal("No files to upload")
	}

	staging := gallery.NewStaging()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logrus.Fatal(err)
		}
		if err := staging.Add(filepath.Base(file), data); err != nil {
			logrus.Fatal(err)
		}
	}
	for i, title := range titles {
		if i >= len(files) {
			break
		}
		staging.SetDraftTitle(i, title)
	}

	mgr := env.manager()
	if err := mgr.Upload(context.Background(), staging.Batch()); err != nil {
		// Staged files stay put so the command can be retried.
		logrus.Fatal(err)
	}
	staging.Clear()
	fmt.Printf("Uploaded %d image(s).\n", len(files))
}

func runRemove(env *clientEnv, args []string) {
	if len(args) != 1 {
		logrus.Fatal("usage: gallery-complete rm <id>")
	}
	mgr := env.manager()
	ctx := context.Background()
	if err := mgr.Load(ctx); err != nil {
		logrus.Fatal(err)
	}
	if err := mgr.Remove(ctx, args[0]); err != nil {
		logrus.Fatal(err)
	}
	fmt.Println("Deleted", args[0])
}

func runMove(env *clientEnv, args []string) {
	if len(args) != 2 {
		logrus.Fatal("usage: gallery-complete mv <from> <to>")
	}
	from, err := strconv.Atoi(args[0])
	if err != nil {
		logrus.Fatal("from must be an index")
	}
	to, err := strconv.Atoi(args[1])
	if err != nil {
		logrus.Fatal("to must be an index")
	}

	mgr := env.manager()
	ctx := context.Background()
	if err := mgr.Load(ctx); err != nil {
		logrus.Fatal(err)
	}
	if err := mgr.Move(ctx, from, to); err != nil {
		logrus.Fatal(err)
	}
	fmt.Printf("Moved %d -> %d.\n", from, to)
}

func runEdit(env *clientEnv, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	title := fs.String("title", "", "new title")
	imagePath := fs.String("image", "", "replacement image file")
	fs.Parse(args)
	if fs.NArg() != 1 {
		logrus.Fatal("usage: gallery-complete edit <id> [-title t] [-image file]")
	}
	id := fs.Arg(0)

	mgr := env.manager()
	ctx := context.Background()
	if err := mgr.Load(ctx); err != nil {
		logrus.Fatal(err)
	}

	var target *gallery.EditSession
	staging := gallery.NewStaging()
	for _, item := range mgr.Items() {
		if item.ID == id {
			staging.BeginEdit(item)
			target = staging.Edit()
			break
		}
	}
	if target == nil {
		logrus.Fatalf("No image with id %s", id)
	}

	if *title != "" {
		staging.SetEditTitle(*title)
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			logrus.Fatal(err)
		}
		if err := staging.AttachReplacement(filepath.Base(*imagePath), data); err != nil {
			logrus.Fatal(err)
		}
	}

	if err := mgr.SaveEdit(ctx, staging.Edit()); err != nil {
		logrus.Fatal(err)
	}
	staging.CancelEdit()
	fmt.Println("Updated", id)
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "serve" {
		runServe(args)
		return
	}

	env := newClientEnv()
	switch cmd {
	case "login":
		runLogin(env, args)
	case "register":
		runRegister(env, args)
	case "forgot-password":
		runForgotPassword(env, args)
	case "logout":
		env.cli.Logout()
		fmt.Println("Signed out.")
	case "list":
		runList(env)
	case "upload":
		runUpload(env, args)
	case "rm":
		runRemove(env, args)
	case "mv":
		runMove(env, args)
	case "edit":
		runEdit(env, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
