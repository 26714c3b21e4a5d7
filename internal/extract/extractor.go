package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gridscraper/internal/browser"
	"github.com/JakeFAU/gridscraper/internal/metrics"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxArticles = 5
)

// ImageFetcher downloads a cover image and returns where it was stored.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL, filename string) (string, error)
}

// Config controls an Extractor.
type Config struct {
	HomeURL     string
	ListingURL  string
	MaxArticles int
	// Timeout bounds every DOM wait. Navigation is bounded by the session's
	// own page-load timeout.
	Timeout   time.Duration
	Selectors Selectors
}

// Extractor runs the navigate, wait and extract sequence against a session.
type Extractor struct {
	cfg    Config
	images ImageFetcher
	logger *zap.Logger
}

// New creates an Extractor. A nil images fetcher disables cover downloads.
func New(cfg Config, images ImageFetcher, logger *zap.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = defaultMaxArticles
	}
	if cfg.Selectors.Listing.Value == "" {
		cfg.Selectors = DefaultSelectors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Extractor{cfg: cfg, images: images, logger: logger}
}

// Extract returns up to MaxArticles records in listing order. If no
// article container appears on the listing page within the timeout the
// result is empty and the error nil. Navigation and session errors are
// returned together with the records completed so far.
func (e *Extractor) Extract(ctx context.Context, s browser.Session) (Result, error) {
	if err := s.Navigate(ctx, e.cfg.HomeURL); err != nil {
		return nil, fmt.Errorf("open home page: %w", err)
	}
	e.dismissConsent(ctx, s)

	if err := s.Navigate(ctx, e.cfg.ListingURL); err != nil {
		return nil, fmt.Errorf("open listing page: %w", err)
	}
	if err := e.waitListing(ctx, s); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			e.logger.Warn("listing page never showed articles", zap.String("url", e.cfg.ListingURL), zap.Error(err))
			return Result{}, nil
		}
		return nil, err
	}

	links, err := e.collectLinks(ctx, s)
	if err != nil {
		return nil, err
	}

	result := make(Result, 0, len(links))
	for i, link := range links {
		rec, err := e.extractArticle(ctx, s, i+1, link)
		if err != nil {
			return result, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (e *Extractor) dismissConsent(ctx context.Context, s browser.Session) {
	waitCtx, cancel := e.bounded(ctx)
	defer cancel()
	if err := s.Click(waitCtx, e.cfg.Selectors.Consent); err != nil {
		e.logger.Debug("no consent dialog dismissed", zap.Error(err))
	}
}

func (e *Extractor) waitListing(ctx context.Context, s browser.Session) error {
	waitCtx, cancel := e.bounded(ctx)
	defer cancel()
	if err := s.WaitPresent(waitCtx, e.cfg.Selectors.Listing); err != nil {
		return fmt.Errorf("wait for articles: %w", err)
	}
	return nil
}

func (e *Extractor) collectLinks(ctx context.Context, s browser.Session) ([]string, error) {
	hrefs, err := s.Attributes(ctx, e.cfg.Selectors.Links, e.cfg.Selectors.LinkAttr)
	if err != nil {
		return nil, fmt.Errorf("collect article links: %w", err)
	}
	base, _ := url.Parse(e.cfg.ListingURL)
	links := make([]string, 0, e.cfg.MaxArticles)
	for _, href := range hrefs {
		if len(links) == e.cfg.MaxArticles {
			break
		}
		href = strings.TrimSpace(href)
		if href == "" {
			continue
		}
		links = append(links, resolve(base, href))
	}
	return links, nil
}

func (e *Extractor) extractArticle(ctx context.Context, s browser.Session, index int, link string) (Record, error) {
	logger := e.logger.With(zap.Int("index", index), zap.String("url", link))
	if err := s.Navigate(ctx, link); err != nil {
		return Record{}, fmt.Errorf("open article %d: %w", index, err)
	}

	rec := Record{
		Index:   index,
		URL:     link,
		Title:   e.title(ctx, s),
		Content: e.content(ctx, s),
	}
	rec.ImagePath = e.coverImage(ctx, s, index, link, logger)

	if rec.Title.Fallback {
		metrics.ObserveFieldFallback("title")
		logger.Debug("title fell back to sentinel", zap.String("reason", rec.Title.Reason))
	}
	if rec.Content.Fallback {
		metrics.ObserveFieldFallback("content")
		logger.Debug("content fell back to sentinel", zap.String("reason", rec.Content.Reason))
	}
	logger.Info("article extracted", zap.String("title", rec.Title.Value), zap.Bool("image", rec.ImagePath != ""))
	return rec, nil
}

func (e *Extractor) title(ctx context.Context, s browser.Session) Field {
	waitCtx, cancel := e.bounded(ctx)
	defer cancel()
	sel := e.cfg.Selectors.Title
	if err := s.WaitPresent(waitCtx, sel); err != nil {
		return Missing(NoTitle, err.Error())
	}
	texts, err := s.Texts(waitCtx, sel)
	if err != nil {
		return Missing(NoTitle, err.Error())
	}
	for _, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			return Found(text)
		}
	}
	return Missing(NoTitle, "heading is empty")
}

func (e *Extractor) content(ctx context.Context, s browser.Session) Field {
	waitCtx, cancel := e.bounded(ctx)
	defer cancel()
	reason := "no paragraphs matched"
	for _, sel := range e.cfg.Selectors.Content {
		texts, err := s.Texts(waitCtx, sel)
		if err != nil {
			reason = err.Error()
			continue
		}
		if parts := nonBlank(texts); len(parts) > 0 {
			return Found(strings.Join(parts, " "))
		}
	}
	return Missing(NoContent, reason)
}

func (e *Extractor) coverImage(ctx context.Context, s browser.Session, index int, link string, logger *zap.Logger) string {
	if e.images == nil {
		return ""
	}
	src := e.imageSource(ctx, s)
	if src == "" {
		logger.Debug("no cover image found")
		return ""
	}
	if base, err := url.Parse(link); err == nil {
		src = resolve(base, src)
	}
	filename := fmt.Sprintf("cover_%d.jpg", index)
	path, err := e.images.Fetch(ctx, src, filename)
	if err != nil {
		logger.Warn("cover image download failed", zap.String("src", src), zap.Error(err))
		return ""
	}
	return path
}

func (e *Extractor) imageSource(ctx context.Context, s browser.Session) string {
	waitCtx, cancel := e.bounded(ctx)
	defer cancel()
	for _, sel := range e.cfg.Selectors.Images {
		srcs, err := s.Attributes(waitCtx, sel, e.cfg.Selectors.ImgAttr)
		if err != nil {
			continue
		}
		for _, src := range srcs {
			if src = strings.TrimSpace(src); src != "" {
				return src
			}
		}
	}
	return ""
}

func (e *Extractor) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

func nonBlank(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
