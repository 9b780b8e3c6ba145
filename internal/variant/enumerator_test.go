package variant_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/store/memory"
	"github.com/alanyoungcy/sharpline/internal/variant"
)

func market(book string, bt domain.BetType, desc *string, outcomes ...domain.Outcome) domain.Market {
	return domain.Market{EventID: "ev1", Bookmaker: book, BetType: bt, Description: desc, Outcomes: outcomes}
}

func line(name string, price, point float64) domain.Outcome {
	return domain.Outcome{Name: name, Price: price, Point: domain.FloatPtr(point)}
}

func load(t *testing.T, markets ...domain.Market) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	for _, m := range markets {
		if err := s.UpsertMarket(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestEnumerateH2H(t *testing.T) {
	e := variant.NewEnumerator(load(t))
	got, err := e.Enumerate(context.Background(), "ev1", domain.BetTypeH2H)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Point != nil || got[0].Description != nil {
		t.Fatalf("h2h variants = %v, want one empty variant", got)
	}
}

func TestEnumerateTotalsCrossProduct(t *testing.T) {
	half := "1st half"
	s := load(t,
		market("a", domain.BetTypeTotals, nil, line("over", 1.9, 2.5), line("under", 1.9, 2.5)),
		market("b", domain.BetTypeTotals, nil, line("over", 2.1, 3), line("under", 1.7, 3)),
		market("b", domain.BetTypeTotals, &half, line("over", 1.8, 1)),
	)
	got, err := variant.NewEnumerator(s).Enumerate(context.Background(), "ev1", domain.BetTypeTotals)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"-@1", "-@2.5", "-@3", "1st half@1", "1st half@2.5", "1st half@3"}
	if len(got) != len(want) {
		t.Fatalf("got %d variants %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("variant[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEnumerateSpreadsUsesHomePoints(t *testing.T) {
	s := load(t,
		market("a", domain.BetTypeSpreads, nil, line("home", 1.9, -1.5), line("away", 1.9, 1.5)),
	)
	got, err := variant.NewEnumerator(s).Enumerate(context.Background(), "ev1", domain.BetTypeSpreads)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || *got[0].Point != -1.5 {
		t.Fatalf("spread variants = %v, want only home line -1.5", got)
	}
}

func TestEnumerateOutrightsByDescription(t *testing.T) {
	winner, scorer := "winner", "top scorer"
	s := load(t,
		market("a", domain.BetTypeOutrights, &winner, domain.Outcome{Name: "ars", Price: 4}),
		market("a", domain.BetTypeOutrights, &scorer, domain.Outcome{Name: "haaland", Price: 3}),
	)
	got, err := variant.NewEnumerator(s).Enumerate(context.Background(), "ev1", domain.BetTypeOutrights)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Point != nil || *got[0].Description != "top scorer" {
		t.Fatalf("outright variants = %v", got)
	}
}

func TestEnumerateMalformedPoint(t *testing.T) {
	s := load(t,
		market("a", domain.BetTypeTotals, nil, line("over", 1.9, math.NaN())),
	)
	_, err := variant.NewEnumerator(s).Enumerate(context.Background(), "ev1", domain.BetTypeTotals)
	if !errors.Is(err, domain.ErrDataMalformed) {
		t.Fatalf("err = %v, want ErrDataMalformed", err)
	}
}

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) GetMarketVariantDescriptions(context.Context, string, domain.BetType) ([]*string, error) {
	return nil, f.err
}

func TestEnumeratePropagatesStoreErrors(t *testing.T) {
	f := failingStore{Store: memory.NewStore(), err: domain.ErrStoreUnavailable}
	_, err := variant.NewEnumerator(f).Enumerate(context.Background(), "ev1", domain.BetTypeTotals)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestEnumerateNoLines(t *testing.T) {
	got, err := variant.NewEnumerator(load(t)).Enumerate(context.Background(), "ev1", domain.BetTypeSpreads)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want no variants", got, err)
	}
}
