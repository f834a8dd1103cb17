package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/client/api"
	"github.com/spec-kit/blog-service/internal/client/session"
	"github.com/spec-kit/blog-service/internal/config"
)

var errUsage = errors.New("usage")

const usage = `usage: blog-client [-api URL] [-session PATH] <command> [flags]

commands:
  status                       show who is signed in
  register -username -email    create an account and sign in
  login -email                 sign in
  logout                       forget the stored session
  me                           fetch the signed-in identity from the server
  passwd                       change the password
  posts                        list published posts
  post -title -content [-publish]
  delete-post <id>
`

type cli struct {
	cfg    config.ClientConfig
	logger *zap.Logger
	prompt *prompter
	out    io.Writer

	client  *api.Client
	session *session.Manager
}

func (c *cli) run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("blog-client", flag.ContinueOnError)
	fs.SetOutput(c.prompt.out)
	fs.Usage = func() { fmt.Fprint(c.prompt.out, usage) }
	baseURL := fs.String("api", c.cfg.BaseURL, "server base URL")
	sessionPath := fs.String("session", c.cfg.SessionPath, "session database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	store, err := session.OpenSQLite(ctx, *sessionPath)
	if err != nil {
		return err
	}
	defer store.Close()

	c.client = api.New(*baseURL, c.cfg.Timeout)
	c.session = session.NewManager(store, c.client, c.logger)
	c.session.Start(ctx)

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	var cmdErr error
	switch cmd {
	case "status":
		cmdErr = c.status()
	case "register":
		cmdErr = c.register(ctx, cmdArgs)
	case "login":
		cmdErr = c.login(ctx, cmdArgs)
	case "logout":
		cmdErr = c.logout(ctx)
	case "me":
		cmdErr = c.me(ctx)
	case "passwd":
		cmdErr = c.passwd(ctx)
	case "posts":
		cmdErr = c.posts(ctx)
	case "post":
		cmdErr = c.createPost(ctx, cmdArgs)
	case "delete-post":
		cmdErr = c.deletePost(ctx, cmdArgs)
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return c.explain(cmdErr)
}

// explain turns session failures into instructions.
func (c *cli) explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotAuthenticated):
		return errors.New("not signed in; run `blog-client login`")
	case errors.Is(err, session.ErrSessionExpired):
		return errors.New(c.session.State().Err)
	}
	if msg := c.session.State().Err; msg != "" {
		c.session.DismissError()
		return errors.New(msg)
	}
	return err
}

func (c *cli) status() error {
	s := c.session.State()
	switch s.View() {
	case session.ViewProtected:
		fmt.Fprintf(c.out, "signed in as %s <%s> (%s)\n", s.Identity.Username, s.Identity.Email, s.Identity.Role)
	case session.ViewAnonymous:
		fmt.Fprintln(c.out, "not signed in")
	default:
		fmt.Fprintln(c.out, "loading")
	}
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.prompt.out)
	var req dto.RegisterRequest
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if req.Username, err = c.prompt.orPrompt(req.Username, "Username"); err != nil {
		return err
	}
	if req.Email, err = c.prompt.orPrompt(req.Email, "Email"); err != nil {
		return err
	}
	if req.Password, err = c.prompt.password("Password"); err != nil {
		return err
	}

	if err := c.session.Register(ctx, req); err != nil {
		return err
	}
	return c.status()
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.prompt.out)
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	addr, err := c.prompt.orPrompt(*email, "Email")
	if err != nil {
		return err
	}
	password, err := c.prompt.password("Password")
	if err != nil {
		return err
	}

	if err := c.session.Login(ctx, addr, password); err != nil {
		if errors.Is(err, session.ErrAlreadySignedIn) {
			return errors.New("already signed in; run `blog-client logout` first")
		}
		return err
	}
	return c.status()
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "signed out")
	return nil
}

func (c *cli) me(ctx context.Context) error {
	return c.session.Authorized(ctx, func(ctx context.Context, token string) error {
		identity, err := c.client.Me(ctx, token)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s\t%s\t%s\t%s\n", identity.ID, identity.Username, identity.Email, identity.Role)
		return nil
	})
}

func (c *cli) passwd(ctx context.Context) error {
	return c.session.Authorized(ctx, func(ctx context.Context, token string) error {
		current, err := c.prompt.password("Current password")
		if err != nil {
			return err
		}
		next, err := c.prompt.password("New password")
		if err != nil {
			return err
		}
		if err := c.client.ChangePassword(ctx, token, current, next); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "password changed")
		return nil
	})
}

func (c *cli) posts(ctx context.Context) error {
	token := c.session.State().Token
	posts, err := c.client.ListPosts(ctx, token)
	if err != nil {
		return err
	}
	for _, p := range posts {
		fmt.Fprintf(c.out, "%s\t%s\t%s\n", p.ID, p.Slug, p.Title)
	}
	return nil
}

func (c *cli) createPost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	fs.SetOutput(c.prompt.out)
	var req dto.PostRequest
	var tags string
	fs.StringVar(&req.Title, "title", "", "title")
	fs.StringVar(&req.Content, "content", "", "content")
	fs.StringVar(&req.CategoryID, "category", "", "category id")
	fs.StringVar(&tags, "tags", "", "comma separated tags")
	fs.BoolVar(&req.IsPublished, "publish", false, "publish immediately")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if tags != "" {
		req.Tags = strings.Split(tags, ",")
	}

	return c.session.Authorized(ctx, func(ctx context.Context, token string) error {
		post, err := c.client.CreatePost(ctx, token, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s\t%s\n", post.ID, post.Slug)
		return nil
	})
}

func (c *cli) deletePost(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete-post <id>", errUsage)
	}
	return c.session.Authorized(ctx, func(ctx context.Context, token string) error {
		if err := c.client.DeletePost(ctx, token, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "deleted")
		return nil
	})
}
