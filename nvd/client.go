package nvd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quay/zlog"
	"golang.org/x/time/rate"

	"github.com/quay/cvssinfo"
	"github.com/quay/cvssinfo/internal/httputil"
)

// Client is a CVE API client.
//
// Requests are rate limited to what NVD grants: 5 requests per rolling 30
// seconds without an API key, 50 with one. See
// https://nvd.nist.gov/developers/start-here.
type Client struct {
	c    *http.Client
	root *url.URL
	key  string
	lim  *rate.Limiter
}

// Option is a Client constructor option.
type Option func(*Client) error

// WithRoot overrides [DefaultAPIRoot].
func WithRoot(root string) Option {
	return func(c *Client) error {
		u, err := url.Parse(root)
		if err != nil {
			return err
		}
		c.root = u
		return nil
	}
}

// WithKey supplies an NVD API key, which is sent on every request and
// raises the rate limit.
func WithKey(key string) Option {
	return func(c *Client) error {
		c.key = key
		return nil
	}
}

// NewClient returns a configured Client. A nil http.Client means
// http.DefaultClient.
func NewClient(c *http.Client, opt ...Option) (*Client, error) {
	if c == nil {
		c = http.DefaultClient
	}
	cl := Client{
		c:    c,
		root: defaultAPIRoot,
	}
	for _, o := range opt {
		if err := o(&cl); err != nil {
			return nil, fmt.Errorf("nvd: %w", err)
		}
	}
	if cl.key == "" {
		cl.lim = rate.NewLimiter(rate.Every(30*time.Second/5), 5)
	} else {
		cl.lim = rate.NewLimiter(rate.Every(30*time.Second/50), 50)
	}
	return &cl, nil
}

// CVE reports the records NVD has published for the named CVE.
//
// No records and no error means NVD knows the CVE but has no primary CVSS
// metrics for it, or doesn't know it at all; the API reports both the same
// way.
func (c *Client) CVE(ctx context.Context, id string) ([]cvssinfo.Record, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "nvd/Client.CVE")
	if !cveRegexp.MatchString(id) {
		return nil, fmt.Errorf("nvd: malformed CVE ID: %q", id)
	}
	if err := c.lim.Wait(ctx); err != nil {
		return nil, err
	}
	u := *c.root
	u.RawQuery = url.Values{"cveId": {strings.ToUpper(id)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.key != "" {
		req.Header.Set("apiKey", c.key)
	}
	zlog.Debug(ctx).
		Str("cve", id).
		Stringer("url", &u).
		Msg("requesting records")
	res, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := httputil.CheckResponse(res, http.StatusOK); err != nil {
		return nil, fmt.Errorf("nvd: %w", err)
	}
	items, err := decodePage(res.Body)
	if err != nil {
		return nil, fmt.Errorf("nvd: unable to decode response: %w", err)
	}
	var out []cvssinfo.Record
	for i := range items {
		out = append(out, items[i].records()...)
	}
	zlog.Debug(ctx).
		Str("cve", id).
		Int("count", len(out)).
		Msg("fetched records")
	return out, nil
}
