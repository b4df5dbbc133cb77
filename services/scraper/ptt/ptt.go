// Package ptt implements an articles.Provider that scrapes the listing of a
// board on the PTT bulletin board system.
package ptt

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"articlesearch-backend/lib/restyutil"
	"articlesearch-backend/lib/telemetry"
	"articlesearch-backend/services/articles"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
)

var tracer = otel.Tracer("articlesearch.services.scraper.ptt")

const providerName = "ptt"

const (
	report_introduction = "introduction"
	report_page         = "page"
)

type Config struct {
	BaseURL string `json:"base_url"`
	Board   string `json:"board"`
	// Pages is the number of listing pages to read, starting from the newest.
	Pages int `json:"pages"`
	// Timeout is the per request timeout in seconds.
	Timeout int `json:"timeout"`
	// FetchIntroductions makes the scraper request every article page to
	// fill in Candidate.Introduction.
	FetchIntroductions bool `json:"fetch_introductions"`
}

var dumpOutput restyutil.Output

// SetRestyDumpOutput makes every provider created afterwards dump its http
// exchanges to output.
func SetRestyDumpOutput(output restyutil.Output) {
	dumpOutput = output
}

var DefaultConfig = Config{
	BaseURL: "https://www.ptt.cc",
	Board:   "Travel",
	Pages:   1,
	Timeout: 30,
}

type Provider struct {
	cfg  Config
	base *url.URL
	http *resty.Client
	tel  telemetry.API
}

func New(cfg Config, tel telemetry.API) (Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig.BaseURL
	}
	if cfg.Board == "" {
		cfg.Board = DefaultConfig.Board
	}
	if cfg.Pages <= 0 {
		cfg.Pages = DefaultConfig.Pages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return Provider{}, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return Provider{}, err
	}
	// boards like Gossiping sit behind an age check
	jar.SetCookies(base, []*http.Cookie{{Name: "over18", Value: "1", Path: "/"}})

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	client.SetTimeout(time.Duration(cfg.Timeout) * time.Second)

	telemetry.InstrumentResty(client, "articlesearch.services.scraper.ptt/http")
	restyutil.DumpMessages(client, dumpOutput)

	return Provider{
		cfg:  cfg,
		base: base,
		http: client,
		tel:  telemetry.NewScopedAPI("ptt", tel),
	}, nil
}

func (p Provider) source() string {
	return fmt.Sprintf("ptt/%s", p.cfg.Board)
}

func (p Provider) get(ctx context.Context, path string) ([]byte, error) {
	res, err := p.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("unexpected status %d for %s", res.StatusCode(), path)
	}
	return res.Body(), nil
}

// Fetch reads the newest Config.Pages listing pages of the board, newest
// page first.
func (p Provider) Fetch(ctx context.Context) ([]articles.Candidate, error) {
	ctx, span := tracer.Start(ctx, "ptt:Fetch", trace.WithAttributes(
		attribute.String("ptt.board", p.cfg.Board),
		attribute.Int("ptt.pages", p.cfg.Pages),
	))
	defer span.End()

	var candidates []articles.Candidate
	path := fmt.Sprintf("/bbs/%s/index.html", p.cfg.Board)
	for page := 0; page < p.cfg.Pages && path != ""; page++ {
		body, err := p.get(ctx, path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch board page")
			return nil, &articles.FetchError{Provider: providerName, Err: err}
		}

		listing, err := parseBoardPage(ctx, p.base, p.source(), body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse board page")
			return nil, &articles.FetchError{Provider: providerName, Err: err}
		}
		p.tel.ReportDebug(report_page, path, len(listing.Candidates))

		candidates = append(candidates, listing.Candidates...)
		path = listing.Previous
	}

	if p.cfg.FetchIntroductions {
		for i := range candidates {
			intro, err := p.introduction(ctx, candidates[i].Link)
			if err != nil {
				p.tel.ReportWarning(report_introduction, err, candidates[i].Link)
				continue
			}
			candidates[i].Introduction = intro
		}
	}

	span.SetAttributes(attribute.Int("ptt.candidates", len(candidates)))
	return candidates, nil
}

func (p Provider) introduction(ctx context.Context, link string) (string, error) {
	ctx, span := tracer.Start(ctx, "ptt:introduction")
	defer span.End()

	body, err := p.get(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch article")
		return "", err
	}
	return parseIntroduction(body)
}
