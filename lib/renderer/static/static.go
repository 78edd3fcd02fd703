// Package static renders pages with a plain HTTP fetch. Trees produced
// this way carry no layout geometry, which downstream heuristics must
// tolerate. It is the cheap path for servers where the assignment tables
// are present in the initial HTML.
package static

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"duesoon-backend/lib/domtree"
	"duesoon-backend/lib/renderer"
	"duesoon-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/purell"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("renderer/static")

type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Options struct {
	BaseUrl string
	// session cookies of an already-authenticated browsing session;
	// this package performs no login of its own
	Cookies  []Cookie
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	cache   *expirable.LRU[string, *domtree.Node]
}

func New(opts Options) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 20
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, len(opts.Cookies))
	for i, c := range opts.Cookies {
		cookies[i] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	jar.SetCookies(baseUrl, cookies)
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "renderer/static/http")

	var cache *expirable.LRU[string, *domtree.Node]
	if opts.CacheTTL > 0 {
		cache = expirable.NewLRU[string, *domtree.Node](256, nil, opts.CacheTTL)
	}

	return &Client{
		baseUrl: baseUrl,
		http:    client,
		cache:   cache,
	}, nil
}

func (c *Client) cacheKey(pageUrl string) (string, error) {
	full, err := c.baseUrl.Parse(pageUrl)
	if err != nil {
		return "", err
	}
	return purell.NormalizeURL(
		full,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	), nil
}

type page struct {
	url  string
	root *domtree.Node
}

func (p page) URL() string         { return p.url }
func (p page) Root() *domtree.Node { return p.root }
func (p page) Close() error        { return nil }

func (c *Client) Render(ctx context.Context, pageUrl string) (renderer.Page, error) {
	ctx, span := tracer.Start(ctx, "Render")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageUrl))

	key, err := c.cacheKey(pageUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return nil, err
	}

	if c.cache != nil {
		if root, hit := c.cache.Get(key); hit {
			span.SetStatus(codes.Ok, "CACHE HIT")
			return page{url: pageUrl, root: root}, nil
		}
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, fmt.Errorf("fetch %s: %w", pageUrl, err)
	}

	root, err := domtree.Parse(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, fmt.Errorf("parse %s: %w", pageUrl, err)
	}

	if c.cache != nil {
		c.cache.Add(key, root)
	}
	return page{url: pageUrl, root: root}, nil
}
