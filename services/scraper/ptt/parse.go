package ptt

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"articlesearch-backend/lib/htmlutil"
	"articlesearch-backend/services/articles"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

const introductionLength = 200

type boardPage struct {
	Candidates []articles.Candidate
	// Previous is the path of the next older listing page, empty on the
	// oldest page.
	Previous string
}

func parseBoardPage(ctx context.Context, base *url.URL, source string, body []byte) (boardPage, error) {
	ctx, span := tracer.Start(ctx, "ptt:parseBoardPage")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return boardPage{}, err
	}

	var page boardPage
	doc.Find("div.r-ent").Each(func(_ int, entry *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, base, entry.Find("div.title a"))
		// deleted posts keep their row but lose the link
		if len(anchors) == 0 {
			return
		}

		author := strings.TrimSpace(entry.Find("div.meta div.author").First().Text())
		if author == "-" {
			author = ""
		}
		page.Candidates = append(page.Candidates, articles.Candidate{
			Source: source,
			Link:   anchors[0].Href,
			Title:  anchors[0].Name,
			Author: author,
		})
	})

	for _, a := range htmlutil.GetAnchors(ctx, nil, doc.Find("div.btn-group-paging a")) {
		if strings.Contains(a.Name, "上頁") {
			page.Previous = a.Href
			break
		}
	}

	span.SetAttributes(
		attribute.Int("ptt.entries", len(page.Candidates)),
		attribute.String("ptt.previous", page.Previous),
	)
	return page, nil
}

func parseIntroduction(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	content := doc.Find("#main-content").First()
	content.Find("div.article-metaline, div.article-metaline-right, div.push, span.f2").Remove()

	text := content.Text()
	// the signature follows a line holding only "--"
	if i := strings.Index(text, "\n--\n"); i >= 0 {
		text = text[:i]
	}
	text = htmlutil.CleanText(text)
	return htmlutil.Truncate(text, introductionLength), nil
}
