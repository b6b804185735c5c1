// cmd/libraryctl/commands.go
package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"librent/internal/apperr"
	"librent/internal/catalog"
	"librent/internal/frontend"
)

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL PASSWORD",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.act(c.app.Login(cmd.Context(), c.state, args[0], args[1])); err != nil {
				return err
			}
			frontend.RenderProfile(c.out, c.state)
			return nil
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register NAME EMAIL PASSWORD",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.act(c.app.Register(cmd.Context(), c.state, args[0], args[1], args[2])); err != nil {
				return err
			}
			frontend.RenderProfile(c.out, c.state)
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.act(c.app.Logout(c.state), nil)
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			frontend.RenderProfile(c.out, c.state)
			return nil
		},
	}
}

func (c *cli) ghostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ghost",
		Short: "Toggle ghost mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			return c.act(c.app.ToggleGhost(cmd.Context(), c.state))
		},
	}
}

func (c *cli) booksCmd() *cobra.Command {
	var search, category string
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			frontend.RenderBooks(c.out, c.state.FilterBooks(search, category))
			frontend.RenderCategories(c.out, c.state.Categories())
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only titles or authors containing this text")
	cmd.Flags().StringVar(&category, "category", "", "only books in this category")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search the catalog by title or author",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := c.app.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			frontend.RenderBooks(c.out, books)
			return nil
		},
	}
}

func (c *cli) tiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "List the rental durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tiers, err := c.app.Tiers(cmd.Context())
			if err != nil {
				return err
			}
			frontend.RenderTiers(c.out, tiers)
			return nil
		},
	}
}

func (c *cli) pointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "points",
		Short: "Show how your points were earned and spent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := c.app.PointsHistory(cmd.Context(), c.state)
			if err != nil {
				return err
			}
			frontend.RenderLedger(c.out, entries)
			return nil
		},
	}
}

func (c *cli) bookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "book ID",
		Short: "Show a book and its ratings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book id")
			if err != nil {
				return err
			}
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			book, ratings, err := c.app.BookDetail(cmd.Context(), c.state, id)
			if err != nil {
				return err
			}
			frontend.RenderBook(c.out, book, ratings)
			return nil
		},
	}
}

func (c *cli) rentCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "rent BOOK_ID",
		Short: "Rent a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book id")
			if err != nil {
				return err
			}
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			return c.act(c.app.Rent(cmd.Context(), c.state, id, days))
		},
	}
	cmd.Flags().IntVar(&days, "days", 15, "rental length in days, one of the durations listed by tiers")
	return cmd
}

func (c *cli) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return RENTAL_ID",
		Short: "Return a rented book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "rental id")
			if err != nil {
				return err
			}
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			return c.act(c.app.Return(cmd.Context(), c.state, id))
		},
	}
}

func (c *cli) rentalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rentals",
		Short: "List your rentals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			frontend.RenderRentals(c.out, c.state.Rentals, time.Now())
			return nil
		},
	}
}

func (c *cli) rateCmd() *cobra.Command {
	var (
		comment string
		private bool
	)
	cmd := &cobra.Command{
		Use:   "rate BOOK_ID STARS",
		Short: "Rate a book from 1 to 5 stars",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book id")
			if err != nil {
				return err
			}
			stars, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			public := !private
			return c.act(c.app.Rate(cmd.Context(), c.state, id, stars, comment, &public))
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "optional review text")
	cmd.Flags().BoolVar(&private, "private", false, "hide the review from other readers")
	return cmd
}

func (c *cli) feedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Show the community feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			frontend.RenderPosts(c.out, c.state)
			return nil
		},
	}
}

func (c *cli) postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post TEXT...",
		Short: "Publish a post to the feed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			return c.act(c.app.Post(cmd.Context(), c.state, strings.Join(args, " ")))
		},
	}
}

func (c *cli) voteCmd(voteType string) *cobra.Command {
	return &cobra.Command{
		Use:   voteType + " POST_ID",
		Short: "Toggle a " + voteType + " on a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "post id")
			if err != nil {
				return err
			}
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			if err := c.act(c.app.Vote(cmd.Context(), c.state, id, voteType)); err != nil {
				return err
			}
			frontend.RenderPosts(c.out, c.state)
			return nil
		},
	}
}

func (c *cli) rankingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rankings",
		Short: "Show reader and book rankings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			frontend.RenderRankings(c.out, c.state.Rankings)
			return nil
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-fetch rankings on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				next, err := c.app.Refresh(cmd.Context(), c.state)
				fmt.Fprintf(c.out, "-- %s\n", time.Now().Format(time.TimeOnly))
				if err != nil {
					frontend.RenderNotice(c.out, next)
				} else {
					c.state = next
					frontend.RenderRankings(c.out, c.state.Rankings)
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "time between refreshes")
	return cmd
}

func (c *cli) rewardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewards",
		Short: "Show the reward menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			frontend.RenderRewards(c.out, c.state)
			return nil
		},
	}
}

func (c *cli) redeemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem REWARD",
		Short: "Spend points on a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.refresh(cmd.Context()); err != nil {
				return err
			}
			return c.act(c.app.Redeem(cmd.Context(), c.state, args[0]))
		},
	}
}

func (c *cli) redemptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redemptions",
		Short: "List your past redemptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := c.app.Redemptions(cmd.Context(), c.state)
			if err != nil {
				return err
			}
			frontend.RenderRedemptions(c.out, log)
			return nil
		},
	}
}

func (c *cli) adminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Administrator views",
	}
	admin.AddCommand(
		&cobra.Command{
			Use:   "users",
			Short: "List every user with points and rental count",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				users, err := c.app.AdminUsers(cmd.Context(), c.state)
				if err != nil {
					return err
				}
				frontend.RenderUsers(c.out, users)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rentals",
			Short: "List every rental",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rentals, err := c.app.AdminRentals(cmd.Context(), c.state)
				if err != nil {
					return err
				}
				frontend.RenderAdminRentals(c.out, rentals)
				return nil
			},
		},
		&cobra.Command{
			Use:   "blacklist",
			Short: "List flagged users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := c.refresh(cmd.Context()); err != nil {
					return err
				}
				if !c.state.IsAdmin() {
					return apperr.New(apperr.Forbidden, "admin access required")
				}
				frontend.RenderBlacklist(c.out, c.state.Blacklist)
				return nil
			},
		},
		c.addBookCmd(),
		c.blacklistActionCmd("flag", "Put a user on the blacklist", func(ctx context.Context, s frontend.State, id int64) (frontend.State, error) {
			return c.app.FlagUser(ctx, s, id)
		}),
		c.blacklistActionCmd("clear", "Lift a user's blacklist entry", func(ctx context.Context, s frontend.State, id int64) (frontend.State, error) {
			return c.app.ClearUser(ctx, s, id)
		}),
	)
	return admin
}

func (c *cli) addBookCmd() *cobra.Command {
	var in catalog.NewBook
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a title to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.act(c.app.AddBook(cmd.Context(), c.state, in))
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "book title")
	cmd.Flags().StringVar(&in.Author, "author", "", "book author")
	cmd.Flags().StringVar(&in.Category, "category", "", "book category")
	cmd.Flags().StringVar(&in.Description, "description", "", "short description")
	cmd.Flags().StringVar(&in.Cover, "cover", "", "cover image URL")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

// userAction runs against c.app, which only exists once the command starts.
type userAction func(ctx context.Context, s frontend.State, userID int64) (frontend.State, error)

func (c *cli) blacklistActionCmd(use, short string, action userAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " USER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			return c.act(action(cmd.Context(), c.state, id))
		},
	}
}
