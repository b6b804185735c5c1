// cmd/libraryctl/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"

	"librent/internal/apperr"
	"librent/internal/clients"
	"librent/internal/feed"
	"librent/internal/frontend"
	"librent/internal/frontend/local"
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("reported")

type cli struct {
	apiURL      string
	localPath   string
	sessionPath string

	out     io.Writer
	backend string
	app     *frontend.App
	state   frontend.State
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &cli{out: os.Stdout}
	if err := c.root().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", describe(err))
		}
		os.Exit(1)
	}
}

func describe(err error) string {
	var urlErr *url.Error
	switch {
	case apperr.CodeOf(err) != apperr.Internal:
		return apperr.MessageOf(err, err.Error())
	case errors.As(err, &urlErr), errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return frontend.NoticeFor(err)
	}
	return err.Error()
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Browse, rent and rate books from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.connect()
		},
	}

	apiDefault := os.Getenv("LIBRENT_API")
	if apiDefault == "" {
		apiDefault = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api", apiDefault, "library API base URL")
	root.PersistentFlags().StringVar(&c.localPath, "local", os.Getenv("LIBRENT_LOCAL"), "use a local library file instead of the API")
	root.PersistentFlags().StringVar(&c.sessionPath, "session", defaultSessionPath(), "where the logged-in user is remembered")

	root.AddCommand(
		c.loginCmd(), c.registerCmd(), c.logoutCmd(), c.whoamiCmd(), c.ghostCmd(),
		c.booksCmd(), c.searchCmd(), c.bookCmd(), c.tiersCmd(), c.rentCmd(), c.returnCmd(), c.rentalsCmd(), c.rateCmd(),
		c.feedCmd(), c.postCmd(), c.voteCmd(feed.Like), c.voteCmd(feed.Dislike),
		c.rankingsCmd(), c.watchCmd(),
		c.rewardsCmd(), c.redeemCmd(), c.redemptionsCmd(), c.pointsCmd(),
		c.adminCmd(),
	)
	return root
}

// connect picks the backend and restores the remembered user.
func (c *cli) connect() error {
	if c.localPath != "" {
		store, err := local.Open(c.localPath)
		if err != nil {
			return err
		}
		c.backend = "local:" + c.localPath
		c.app = frontend.NewApp(store)
	} else {
		c.backend = "api:" + c.apiURL
		c.app = frontend.NewApp(clients.NewAPIClient(c.apiURL, &http.Client{Timeout: 10 * time.Second}))
	}

	sess, err := loadSession(c.sessionPath, c.backend)
	if err != nil {
		return err
	}
	if sess != nil {
		c.state = c.state.WithUser(*sess)
	}
	return nil
}

// act runs an action, reports its notice and remembers the resulting user.
func (c *cli) act(next frontend.State, err error) error {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", next.Notice)
		return errReported
	}
	c.state = next
	frontend.RenderNotice(c.out, next)
	return saveSession(c.sessionPath, c.backend, next.User)
}

// refresh loads the current state or reports why it could not.
func (c *cli) refresh(ctx context.Context) error {
	next, err := c.app.Refresh(ctx, c.state)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", next.Notice)
		return errReported
	}
	c.state = next
	return saveSession(c.sessionPath, c.backend, next.User)
}
