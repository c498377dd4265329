// Package symbol maps user-supplied tickers to the identifier forms the
// upstream providers expect.
package symbol

import (
	"fmt"
	"strings"

	"github.com/guttosm/nsepulse/internal/source"
)

// Exchange is the listing venue a symbol resolves to.
type Exchange string

const (
	NSE     Exchange = "NSE"
	BSE     Exchange = "BSE"
	Unknown Exchange = "UNKNOWN"
)

// MaxLength is the longest accepted symbol, not counting a recognized
// exchange suffix.
const MaxLength = 20

const (
	suffixNSE = ".NS"
	suffixBSE = ".BO"
)

// recognized suffixes, longest first so ".NSE" wins over ".NS".
var suffixes = []struct {
	tag      string
	exchange Exchange
}{
	{".NSE", NSE},
	{".BSE", BSE},
	{suffixNSE, NSE},
	{suffixBSE, BSE},
}

// NormalizedSymbol is a validated ticker in Yahoo-style suffixed form.
type NormalizedSymbol struct {
	Raw       string   `json:"raw"`
	Canonical string   `json:"canonical"`
	Exchange  Exchange `json:"exchange"`
}

// Base returns the canonical symbol without its exchange suffix, the form
// NSE and Screener address companies by.
func (s NormalizedSymbol) Base() string {
	if i := strings.LastIndexByte(s.Canonical, '.'); i > 0 {
		return s.Canonical[:i]
	}
	return s.Canonical
}

func (s NormalizedSymbol) String() string { return s.Canonical }

// ParseExchange reads an exchange hint; anything unrecognized is Unknown.
func ParseExchange(s string) Exchange {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NSE", "NS":
		return NSE
	case "BSE", "BO":
		return BSE
	default:
		return Unknown
	}
}

// Normalize validates raw and returns its canonical suffixed form.
//
// An existing recognized suffix always wins over hint. Without one, BSE
// appends ".BO" and every other hint appends the default ".NS".
func Normalize(raw string, hint Exchange) (NormalizedSymbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return NormalizedSymbol{}, invalid(raw, "symbol is empty")
	}

	base, exch := splitSuffix(s)
	if exch == Unknown {
		exch = NSE
		if hint == BSE {
			exch = BSE
		}
	}
	if base == "" {
		return NormalizedSymbol{}, invalid(raw, "symbol has no base")
	}
	if len(base) > MaxLength {
		return NormalizedSymbol{}, invalid(raw, "symbol longer than %d characters", MaxLength)
	}
	for _, r := range base {
		if !validRune(r) {
			return NormalizedSymbol{}, invalid(raw, "invalid character %q", r)
		}
	}

	return NormalizedSymbol{Raw: raw, Canonical: base + suffixFor(exch), Exchange: exch}, nil
}

// MustNormalize is Normalize for literals known to be valid.
func MustNormalize(raw string) NormalizedSymbol {
	s, err := Normalize(raw, Unknown)
	if err != nil {
		panic(err)
	}
	return s
}

// Candidates returns the suffixed forms worth probing for a free-text query:
// the query itself when it already names an exchange, otherwise NSE then BSE.
func Candidates(query string) []NormalizedSymbol {
	s := strings.ToUpper(strings.TrimSpace(query))
	if _, exch := splitSuffix(s); exch != Unknown {
		if n, err := Normalize(s, exch); err == nil {
			return []NormalizedSymbol{n}
		}
		return nil
	}
	var out []NormalizedSymbol
	for _, e := range []Exchange{NSE, BSE} {
		if n, err := Normalize(s, e); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func splitSuffix(s string) (string, Exchange) {
	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.tag) {
			return strings.TrimSuffix(s, sfx.tag), sfx.exchange
		}
	}
	return s, Unknown
}

func suffixFor(e Exchange) string {
	if e == BSE {
		return suffixBSE
	}
	return suffixNSE
}

// validRune reports whether r may appear in a base; '.' only ever separates
// the exchange suffix.
func validRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '&' || r == '-' || r == '_':
		return true
	}
	return false
}

func invalid(raw, format string, args ...any) error {
	return source.New(source.InvalidSymbol, "symbol", "normalize", fmt.Errorf("%q: %s", raw, fmt.Sprintf(format, args...)))
}
