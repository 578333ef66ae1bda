package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vadimfor/showdeck/internal/show"
)

// RatingBand classifies a rating for coloring.
type RatingBand int

const (
	BandUnknown RatingBand = iota // no rating
	BandLow                       // below 6
	BandFair                      // 6 up to 7
	BandGood                      // 7 and above
)

// BandFor returns the band of rating.
func BandFor(rating *float64) RatingBand {
	switch {
	case rating == nil:
		return BandUnknown
	case *rating < 6:
		return BandLow
	case *rating < 7:
		return BandFair
	default:
		return BandGood
	}
}

var bandStyles = map[RatingBand]lipgloss.Style{
	BandUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	BandLow:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	BandFair:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	BandGood:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
}

// RatingStyle returns the style for rating.
func RatingStyle(rating *float64) lipgloss.Style {
	return bandStyles[BandFor(rating)]
}

// FormatRating renders a rating with one decimal, or "–" when unknown.
func FormatRating(rating *float64) string {
	if rating == nil {
		return RatingStyle(nil).Render("–")
	}
	return RatingStyle(rating).Render(fmt.Sprintf("%.1f", *rating))
}

// FormatVotes renders a vote count with thousands separators.
func FormatVotes(votes *int) string {
	if votes == nil {
		return ""
	}
	return humanize.Comma(int64(*votes)) + " votes"
}

// Marks shows the membership flags in front of a listing line.
func Marks(fav, saved bool) string {
	var b strings.Builder
	if fav {
		b.WriteString(RenderAccent("★"))
	} else {
		b.WriteString(" ")
	}
	if saved {
		b.WriteString(RenderPass("⚑"))
	} else {
		b.WriteString(" ")
	}
	return b.String()
}

// ShowLine renders one show as a listing line.
func ShowLine(sh show.Show, fav, saved bool) string {
	rank := "   -"
	if sh.Rank != nil {
		rank = fmt.Sprintf("%4d", *sh.Rank)
	}
	line := fmt.Sprintf("%s %s  %s  %s %s", Marks(fav, saved), RenderMuted(rank), FormatRating(sh.Rating),
		RenderBold(sh.Title), RenderMuted(sh.ID))
	if sh.ReleaseDate != nil {
		line += RenderMuted("  " + *sh.ReleaseDate)
	}
	return line
}

// ShowDetail renders every known field of a show.
func ShowDetail(sh show.Show, fav, saved bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %s\n\n", RenderTitle(sh.Title), RenderMuted("("+sh.ID+")"))

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %-10s %s\n", name+":", value)
		}
	}
	if sh.Rank != nil {
		field("Rank", fmt.Sprintf("#%d", *sh.Rank))
	}
	field("Rating", strings.TrimSpace(FormatRating(sh.Rating)+"  "+FormatVotes(sh.Votes)))
	if sh.ReleaseDate != nil {
		field("Released", *sh.ReleaseDate)
	}
	if len(sh.Genres) > 0 {
		field("Genres", strings.Join(sh.Genres, ", "))
	}
	if sh.Seasons != nil {
		field("Seasons", fmt.Sprint(*sh.Seasons))
	}
	if sh.Episodes != nil {
		field("Episodes", fmt.Sprint(*sh.Episodes))
	}
	if sh.Trailer != nil {
		field("Trailer", *sh.Trailer)
	}
	if sh.Image != nil {
		field("Image", *sh.Image)
	}
	field("Favorite", yesNo(fav))
	field("Saved", yesNo(saved))
	if sh.Plot != nil {
		fmt.Fprintf(&b, "\n  %s\n", *sh.Plot)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return RenderPass("yes")
	}
	return RenderMuted("no")
}
