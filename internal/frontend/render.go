// internal/frontend/render.go
package frontend

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/feed"
	"librent/internal/ledger"
	"librent/internal/membership"
	"librent/internal/rankings"
	"librent/internal/rewards"
)

const dateLayout = "2006-01-02"

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// AverageText formats a book's mean rating, N/A when unrated.
func AverageText(b catalog.Book) string {
	if b.RatingCount == 0 {
		return rankings.NotAvailable
	}
	return strconv.FormatFloat(b.AverageRating(), 'f', 1, 64)
}

func RenderProfile(w io.Writer, s State) {
	if !s.LoggedIn() {
		fmt.Fprintln(w, "not logged in")
		return
	}
	u := s.User
	fmt.Fprintf(w, "%s <%s>  %d pts", u.Name, u.Email, s.Points)
	if u.IsAdmin {
		fmt.Fprint(w, "  [admin]")
	}
	if u.GhostMode {
		fmt.Fprint(w, "  [ghost]")
	}
	fmt.Fprintln(w)
}

func RenderNotice(w io.Writer, s State) {
	if s.Notice != "" {
		fmt.Fprintln(w, "» "+s.Notice)
	}
}

func RenderBooks(w io.Writer, books []catalog.Book) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tCATEGORY\tAVAILABLE\tRATING")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s (%d)\n",
			b.ID, b.Title, b.Author, b.Category, b.Copies-b.Rented, b.Copies, AverageText(b), b.RatingCount)
	}
	tw.Flush()
}

// RenderBook prints one book with its visible ratings.
func RenderBook(w io.Writer, b catalog.Book, ratings []catalog.Rating) {
	fmt.Fprintf(w, "%s by %s\n", b.Title, b.Author)
	if b.Category != "" {
		fmt.Fprintf(w, "category: %s\n", b.Category)
	}
	if b.Description != "" {
		fmt.Fprintln(w, b.Description)
	}
	fmt.Fprintf(w, "available: %d of %d  rating: %s (%d)\ncover: %s\n",
		b.Copies-b.Rented, b.Copies, AverageText(b), b.RatingCount, b.Cover)
	if len(ratings) == 0 {
		fmt.Fprintln(w, "no ratings yet")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "\nUSER\tSTARS\tDATE\tCOMMENT")
	for _, r := range ratings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.UserName, strings.Repeat("*", r.Rating), r.Date.Format(dateLayout), r.Comment)
	}
	tw.Flush()
}

func RenderRentals(w io.Writer, rentals []circulation.Rental, now time.Time) {
	if len(rentals) == 0 {
		fmt.Fprintln(w, "no rentals")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tTITLE\tTIER\tRENTED\tDUE\tSTATUS")
	for _, r := range rentals {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Title, r.Tier, r.RentalDate.Format(dateLayout), r.DueDate.Format(dateLayout), rentalStatus(r, now))
	}
	tw.Flush()
}

func rentalStatus(r circulation.Rental, now time.Time) string {
	switch {
	case r.ReturnDate != nil:
		return "returned " + r.ReturnDate.Format(dateLayout)
	case r.Status == circulation.StatusOverdue || now.After(r.DueDate):
		return circulation.StatusOverdue
	default:
		days := int(r.DueDate.Sub(now).Hours() / 24)
		return fmt.Sprintf("%s, %dd left", circulation.StatusActive, days)
	}
}

func RenderAdminRentals(w io.Writer, rentals []circulation.AdminRental) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tUSER\tEMAIL\tTITLE\tRENTED\tDUE\tSTATUS")
	for _, r := range rentals {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.UserName, r.UserEmail, r.Title, r.RentalDate.Format(dateLayout), r.DueDate.Format(dateLayout), r.Status)
	}
	tw.Flush()
}

// RenderPosts prints the feed, marking the viewer's own votes.
func RenderPosts(w io.Writer, s State) {
	if len(s.Posts) == 0 {
		fmt.Fprintln(w, "the feed is empty")
		return
	}
	for _, p := range s.Posts {
		fmt.Fprintf(w, "#%d %s · %s\n  %s\n  %s\n",
			p.ID, p.UserName, p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Content, voteLine(p, s.VoteOn(p.ID)))
	}
}

func voteLine(p feed.Post, mine string) string {
	like, dislike := "+", "-"
	switch mine {
	case feed.Like:
		like = "[+]"
	case feed.Dislike:
		dislike = "[-]"
	}
	return fmt.Sprintf("%s%d %s%d", like, p.Likes, dislike, p.Dislikes)
}

func RenderRankings(w io.Writer, r rankings.Rankings) {
	top := fmt.Sprintf("%s (%d pts)", r.TopUser.Name, r.TopUser.Points)
	if r.TopUser.Title != "" {
		top += " · " + r.TopUser.Title
	}
	rated := r.TopRated.Title
	if r.TopRated.Count > 0 {
		rated = fmt.Sprintf("%s (%.1f from %d)", r.TopRated.Title, r.TopRated.AvgRating, r.TopRated.Count)
	}
	read := r.MostRead.Title
	if r.MostRead.Total > 0 {
		read = fmt.Sprintf("%s (%d rentals)", r.MostRead.Title, r.MostRead.Total)
	}

	tw := table(w)
	fmt.Fprintf(tw, "Reader of the month\t%s\n", top)
	fmt.Fprintf(tw, "Most read\t%s\n", read)
	fmt.Fprintf(tw, "Top rated\t%s\n", rated)
	tw.Flush()
}

func RenderBlacklist(w io.Writer, entries []rankings.BlacklistEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "nobody is blacklisted")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "USER\tNAME\tEMAIL\tBOOK\tDUE\tDAYS LATE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", e.UserID, e.Name, e.Email, e.BookTitle, e.DueDate.Format(dateLayout), e.DaysLate)
	}
	tw.Flush()
}

func RenderUsers(w io.Writer, users []membership.UserSummary) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tPOINTS\tGHOST\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%t\t%t\n", u.ID, u.Name, u.Email, u.Role, u.Points, u.GhostMode, u.Active)
	}
	tw.Flush()
}

// RenderRewards prints the menu with what the current balance can afford.
func RenderRewards(w io.Writer, s State) {
	tw := table(w)
	fmt.Fprintln(tw, "TYPE\tREWARD\tCOST\t")
	for _, o := range RewardMenu {
		mark := ""
		if s.Points >= o.Cost {
			mark = "affordable"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", o.Type, o.Title, o.Cost, mark)
	}
	tw.Flush()
}

func RenderRedemptions(w io.Writer, log []rewards.Redemption) {
	if len(log) == 0 {
		fmt.Fprintln(w, "no redemptions")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tREWARD\tCOST\tDATE")
	for _, r := range log {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.ID, r.RewardType, r.Cost, r.RedeemedAt.Format(dateLayout))
	}
	tw.Flush()
}

func RenderLedger(w io.Writer, entries []ledger.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no points yet")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "DATE\tPOINTS\tREASON")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%+d\t%s\n", e.CreatedAt.Format(dateLayout), e.Quantity, e.Reason)
	}
	tw.Flush()
}

func RenderTiers(w io.Writer, tiers []circulation.Tier) {
	tw := table(w)
	fmt.Fprintln(tw, "TIER\tDAYS")
	for _, t := range tiers {
		fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.DurationDays)
	}
	tw.Flush()
}

// RenderCategories prints the category list the catalog can be filtered by.
func RenderCategories(w io.Writer, categories []string) {
	if len(categories) == 0 {
		return
	}
	fmt.Fprintln(w, "categories: "+strings.Join(categories, ", "))
}
