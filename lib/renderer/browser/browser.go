// Package browser renders pages in a real Chrome instance via rod. It is
// the only renderer that can report layout geometry, which the dashboard
// discovery heuristics use to tell course cards apart from sidebar links.
// It relies on an already-authenticated browser profile; no login flows.
package browser

import (
	"context"
	"fmt"
	"time"

	"duesoon-backend/lib/domtree"
	"duesoon-backend/lib/renderer"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("renderer/browser")

type Options struct {
	// RemoteUrl is the devtools websocket of an external Chrome.
	// Empty launches a local headless instance.
	RemoteUrl string
	// UserDataDir carries the logged-in profile when launching locally.
	UserDataDir string
	// Timeout bounds navigation + load wait per page. On expiry the page
	// is serialized as-is rather than failing the render.
	Timeout time.Duration
}

type Browser struct {
	browser *rod.Browser
	timeout time.Duration
}

func New(opts Options) (*Browser, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 20
	}

	controlUrl := opts.RemoteUrl
	if controlUrl == "" {
		l := launcher.New().Headless(true)
		if opts.UserDataDir != "" {
			l = l.UserDataDir(opts.UserDataDir)
		}
		var err error
		controlUrl, err = l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
	}

	b := rod.New().ControlURL(controlUrl)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	return &Browser{browser: b, timeout: opts.Timeout}, nil
}

func (b *Browser) Close() error {
	return b.browser.Close()
}

type page struct {
	url  string
	root *domtree.Node
	tab  *rod.Page
}

func (p *page) URL() string         { return p.url }
func (p *page) Root() *domtree.Node { return p.root }
func (p *page) Close() error        { return p.tab.Close() }

// serializeScript walks the live DOM into the wire form domtree.DecodeJSON
// understands, carrying bounding boxes in page coordinates.
const serializeScript = `() => {
	const sx = window.scrollX, sy = window.scrollY;
	function walk(node) {
		if (node.nodeType === Node.TEXT_NODE) {
			const text = node.textContent;
			if (!text || !text.trim()) return null;
			return { tag: "", text };
		}
		if (node.nodeType !== Node.ELEMENT_NODE) return null;
		const tag = node.tagName.toLowerCase();
		if (tag === "script" || tag === "style") return null;
		const attrs = {};
		for (const a of node.attributes) attrs[a.name] = a.value;
		const r = node.getBoundingClientRect();
		const out = {
			tag,
			attrs,
			rect: { x: r.x + sx, y: r.y + sy, width: r.width, height: r.height },
			children: [],
		};
		for (const c of node.childNodes) {
			const w = walk(c);
			if (w) out.children.push(w);
		}
		return out;
	}
	return JSON.stringify(walk(document.documentElement));
}`

func (b *Browser) Render(ctx context.Context, pageUrl string) (renderer.Page, error) {
	ctx, span := tracer.Start(ctx, "Render")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageUrl))

	tab, err := b.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create tab")
		return nil, fmt.Errorf("create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err = tab.Context(navCtx).Navigate(pageUrl)
	if err != nil {
		tab.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate")
		return nil, fmt.Errorf("navigate %s: %w", pageUrl, err)
	}
	// a slow page should not fail the render; serialize whatever loaded
	if err := tab.Context(navCtx).WaitLoad(); err != nil {
		span.AddEvent("wait load timeout", trace.WithAttributes(
			attribute.String("url", pageUrl),
		))
	}

	res, err := tab.Context(ctx).Eval(serializeScript)
	if err != nil {
		tab.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize dom")
		return nil, fmt.Errorf("serialize dom: %w", err)
	}

	root, err := domtree.DecodeJSON([]byte(res.Value.Str()))
	if err != nil {
		tab.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode dom tree")
		return nil, fmt.Errorf("decode dom tree: %w", err)
	}

	return &page{url: pageUrl, root: root, tab: tab}, nil
}
