package symbol

import (
	"strings"
	"testing"

	"github.com/guttosm/nsepulse/internal/source"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		hint      Exchange
		canonical string
		exchange  Exchange
		wantErr   bool
	}{
		{name: "default nse suffix", raw: "reliance", hint: Unknown, canonical: "RELIANCE.NS", exchange: NSE},
		{name: "trim and upper", raw: "  tcs \t", hint: Unknown, canonical: "TCS.NS", exchange: NSE},
		{name: "bse hint", raw: "infy", hint: BSE, canonical: "INFY.BO", exchange: BSE},
		{name: "nse hint", raw: "infy", hint: NSE, canonical: "INFY.NS", exchange: NSE},
		{name: "existing suffix wins over hint", raw: "infy.ns", hint: BSE, canonical: "INFY.NS", exchange: NSE},
		{name: "bo suffix", raw: "500325.BO", hint: Unknown, canonical: "500325.BO", exchange: BSE},
		{name: "long nse suffix", raw: "HDFCBANK.NSE", hint: Unknown, canonical: "HDFCBANK.NS", exchange: NSE},
		{name: "long bse suffix", raw: "hdfcbank.bse", hint: Unknown, canonical: "HDFCBANK.BO", exchange: BSE},
		{name: "ampersand", raw: "m&m", hint: Unknown, canonical: "M&M.NS", exchange: NSE},
		{name: "hyphen", raw: "bajaj-auto", hint: Unknown, canonical: "BAJAJ-AUTO.NS", exchange: NSE},
		{name: "twenty chars", raw: strings.Repeat("A", 20), hint: Unknown, canonical: strings.Repeat("A", 20) + ".NS", exchange: NSE},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace", raw: "   ", wantErr: true},
		{name: "too long", raw: strings.Repeat("A", 21), wantErr: true},
		{name: "suffix only", raw: ".NS", wantErr: true},
		{name: "bad charset", raw: "REL IANCE", wantErr: true},
		{name: "unknown suffix", raw: "ABC.XY", wantErr: true},
		{name: "dot inside base", raw: "M.M.NS", wantErr: true},
		{name: "doubled suffix", raw: "TCS.NS.NS", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.raw, tc.hint)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				if source.KindOf(err) != source.InvalidSymbol {
					t.Fatalf("want InvalidSymbol, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Canonical != tc.canonical || got.Exchange != tc.exchange {
				t.Fatalf("got %+v, want canonical=%s exchange=%s", got, tc.canonical, tc.exchange)
			}
			if got.Raw != tc.raw {
				t.Fatalf("raw not preserved: %q", got.Raw)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"reliance", "A", "infy.bo", "TCS.NSE", "m&m", strings.Repeat("Z", 20), "x1_y2"}
	for _, in := range inputs {
		for _, hint := range []Exchange{Unknown, NSE, BSE} {
			first, err := Normalize(in, hint)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", in, err)
			}
			second, err := Normalize(first.Canonical, Unknown)
			if err != nil {
				t.Fatalf("Normalize(%q) second pass: %v", first.Canonical, err)
			}
			if second.Canonical != first.Canonical || second.Exchange != first.Exchange {
				t.Fatalf("not idempotent for %q/%s: %+v vs %+v", in, hint, first, second)
			}
			if first.Canonical != strings.ToUpper(first.Canonical) {
				t.Fatalf("canonical not upper-cased: %q", first.Canonical)
			}
		}
	}
}

func TestBaseAndCandidates(t *testing.T) {
	if b := MustNormalize("reliance").Base(); b != "RELIANCE" {
		t.Fatalf("Base()=%q", b)
	}

	c := Candidates("tcs")
	if len(c) != 2 || c[0].Canonical != "TCS.NS" || c[1].Canonical != "TCS.BO" {
		t.Fatalf("unexpected candidates %+v", c)
	}
	c = Candidates("tcs.bo")
	if len(c) != 1 || c[0].Canonical != "TCS.BO" {
		t.Fatalf("suffixed query must probe only itself: %+v", c)
	}
	if c := Candidates("bad sym"); len(c) != 0 {
		t.Fatalf("invalid query must yield no candidates: %+v", c)
	}
}

func TestParseExchange(t *testing.T) {
	cases := map[string]Exchange{"nse": NSE, "BO": BSE, " bse ": BSE, "": Unknown, "nyse": Unknown}
	for in, want := range cases {
		if got := ParseExchange(in); got != want {
			t.Fatalf("ParseExchange(%q)=%s want %s", in, got, want)
		}
	}
}
