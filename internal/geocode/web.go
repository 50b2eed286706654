package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// WebConfig describes the HTML geocoding site.
type WebConfig struct {
	BaseURL     string
	ConsentPath string
	SearchPath  string
	// LatSelector and LonSelector locate the elements carrying the result;
	// the value attribute is read, falling back to the element text.
	LatSelector string
	LonSelector string
	UserAgent   string
	// Transport overrides the default round tripper (tests).
	Transport http.RoundTripper
}

// WebBackend scrapes a geocoding web page. It keeps cookies between calls
// so the consent accepted once applies to every later search.
type WebBackend struct {
	cfg    WebConfig
	base   *url.URL
	client *http.Client
}

// NewWebBackend validates cfg and builds a backend with its own cookie jar.
func NewWebBackend(cfg WebConfig) (*WebBackend, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("geocode: invalid base url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: cookie jar: %w", err)
	}
	if cfg.ConsentPath == "" {
		cfg.ConsentPath = "/"
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = "/search"
	}
	if cfg.LatSelector == "" {
		cfg.LatSelector = "#latitude"
	}
	if cfg.LonSelector == "" {
		cfg.LonSelector = "#longitude"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "itvetl/1.0"
	}
	return &WebBackend{
		cfg:    cfg,
		base:   base,
		client: &http.Client{Jar: jar, Transport: cfg.Transport},
	}, nil
}

// AcceptConsent loads the consent page and submits its first form with the
// hidden inputs and the first submit button it declares.
func (w *WebBackend) AcceptConsent(ctx context.Context) error {
	pageURL := w.base.ResolveReference(&url.URL{Path: w.cfg.ConsentPath})
	doc, err := w.get(ctx, pageURL.String())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConsent, err)
	}

	form := doc.Find("form").First()
	if form.Length() == 0 {
		return fmt.Errorf("%w: no consent form at %s", ErrConsent, pageURL)
	}

	action, _ := form.Attr("action")
	target, err := pageURL.Parse(action)
	if err != nil {
		return fmt.Errorf("%w: bad form action %q", ErrConsent, action)
	}

	values := url.Values{}
	form.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("name"); ok {
			values.Add(name, s.AttrOr("value", ""))
		}
	})
	if btn := form.Find("button[type=submit], input[type=submit]").First(); btn.Length() > 0 {
		if name, ok := btn.Attr("name"); ok {
			values.Set(name, btn.AttrOr("value", ""))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConsent, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", w.cfg.UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConsent, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrConsent, resp.StatusCode)
	}
	return nil
}

// Lookup searches q and reads the coordinates off the result page. A page
// without both values is "not found".
func (w *WebBackend) Lookup(ctx context.Context, q Query) (Coordinates, bool, error) {
	u := w.base.ResolveReference(&url.URL{Path: w.cfg.SearchPath})
	u.RawQuery = url.Values{"q": {q.String()}}.Encode()

	doc, err := w.get(ctx, u.String())
	if err != nil {
		return Coordinates{}, false, err
	}

	lat, okLat := readFloat(doc.Find(w.cfg.LatSelector).First())
	lon, okLon := readFloat(doc.Find(w.cfg.LonSelector).First())
	if !okLat || !okLon {
		return Coordinates{}, false, nil
	}
	return Coordinates{Lat: lat, Lon: lon}, true, nil
}

func (w *WebBackend) get(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("User-Agent", w.cfg.UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: GET %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: GET %s: status %d", u, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("geocode: parse %s: %w", u, err)
	}
	return doc, nil
}

func readFloat(s *goquery.Selection) (float64, bool) {
	if s.Length() == 0 {
		return 0, false
	}
	raw := strings.TrimSpace(s.AttrOr("value", ""))
	if raw == "" {
		raw = strings.TrimSpace(s.Text())
	}
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
