package screener

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/guregu/null/v6"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// CompanyInfo scrapes the name and sector from the company page.
func (c *Client) CompanyInfo(ctx context.Context, raw string) (models.CompanyInfo, error) {
	sym, err := symbol.Normalize(raw, symbol.NSE)
	if err != nil {
		return models.CompanyInfo{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	const op = "company_info"
	resp, err := c.fetch(ctx, op, companyPath(sym), "text/html")
	if err != nil {
		return models.CompanyInfo{}, err
	}
	if resp.StatusCode != http.StatusOK {
		httpx.Drain(resp)
		return models.CompanyInfo{}, source.StatusError(Name, op, resp.StatusCode)
	}
	defer func() { _ = resp.Body.Close() }()

	name, sector, err := scrapeCompany(io.LimitReader(resp.Body, httpx.MaxBody))
	if err != nil {
		return models.CompanyInfo{}, source.New(source.UpstreamFormatError, Name, op, err)
	}
	if name == "" {
		name = sym.Base()
	}
	return models.CompanyInfo{
		Symbol: sym.Base(),
		Name:   name,
		Sector: null.NewString(sector, sector != ""),
		Source: SourceLabel,
	}, nil
}

// scrapeCompany returns the text of the first <h1> and of the first <a>
// carrying the "sub" class.
func scrapeCompany(r io.Reader) (name, sector string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.H1 && name == "":
				name = text(n)
			case n.DataAtom == atom.A && sector == "" && hasClass(n, "sub"):
				sector = text(n)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return name, sector, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, f := range strings.Fields(a.Val) {
				if f == class {
					return true
				}
			}
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
