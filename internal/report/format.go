package report

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// Labels are the display names for one event.
type Labels struct {
	League string
	Home   string
	Away   string
}

// Title is the one-line heading for an event block.
func (l Labels) Title() string {
	return fmt.Sprintf("%s: %s vs %s", l.League, l.Home, l.Away)
}

var betTypeLabels = map[domain.BetType]string{
	domain.BetTypeH2H:          "Moneyline",
	domain.BetTypeSpreads:      "Spread",
	domain.BetTypeTotals:       "Total",
	domain.BetTypeOutrights:    "Outright",
	domain.BetTypeAsianSpreads: "Asian Handicap",
	domain.BetTypeMisc:         "Other",
}

// BetTypeLabel returns the display name of bt, with the market description
// appended when present.
func BetTypeLabel(bt domain.BetType, description *string) string {
	label, ok := betTypeLabels[bt]
	if !ok {
		label = string(bt)
	}
	if description != nil && *description != "" {
		label += " (" + *description + ")"
	}
	return label
}

// resolveLabels looks up team and category names, falling back to the raw
// identifiers when a lookup fails.
func resolveLabels(ctx context.Context, r domain.LabelResolver, ev domain.Event) Labels {
	l := Labels{League: ev.CategoryID, Home: ev.HomeTeamID, Away: ev.AwayTeamID}
	if r == nil {
		return l
	}
	if name, err := r.CategoryName(ctx, ev.CategoryID); err == nil {
		l.League = name
	}
	if name, err := r.TeamName(ctx, ev.HomeTeamID); err == nil {
		l.Home = name
	}
	if name, err := r.TeamName(ctx, ev.AwayTeamID); err == nil {
		l.Away = name
	}
	return l
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func point(p *float64) string {
	if p == nil {
		return "-"
	}
	return decimal.NewFromFloat(*p).String()
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

// RenderValueBets renders one event's positive-EV bets as an aligned table.
func RenderValueBets(l Labels, bets []domain.PositiveEVBet) string {
	var b strings.Builder
	b.WriteString(l.Title())
	b.WriteByte('\n')

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Bet Type\tOutcome\tPoint\tBook\tPrice\tFair\tEdge\tStake")
	for _, bet := range bets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			BetTypeLabel(bet.BetType, bet.Description),
			outcomeLabel(l, bet.Outcome),
			point(bet.Point),
			bet.Bookmaker,
			fixed(bet.Price, 2),
			fixed(bet.FairPrice, 3),
			percent(bet.Edge-1),
			percent(bet.Stake),
		)
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderArbs renders one event's arbitrage combinations, one leg per row.
func RenderArbs(l Labels, arbs []domain.ArbitrageCombination) string {
	var b strings.Builder
	b.WriteString(l.Title())
	b.WriteByte('\n')

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Bet Type\tOutcome\tPoint\tBook\tPrice\tStake")
	for _, a := range arbs {
		fmt.Fprintf(tw, "%s\t\t\t\tsum %s\tprofit %s\n",
			BetTypeLabel(a.BetType, a.Description), fixed(a.ImpliedSum, 4), percent(a.Profit()))
		for _, leg := range a.Legs {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%s\t%s\n",
				outcomeLabel(l, leg.Outcome), point(leg.Point), leg.Bookmaker,
				fixed(leg.Price, 2), percent(leg.Stake))
		}
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func outcomeLabel(l Labels, name string) string {
	switch name {
	case domain.OutcomeHome:
		return l.Home
	case domain.OutcomeAway:
		return l.Away
	case domain.OutcomeDraw:
		return "Draw"
	case domain.OutcomeOver:
		return "Over"
	case domain.OutcomeUnder:
		return "Under"
	}
	return name
}
