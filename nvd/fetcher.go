package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/quay/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/quay/cvssinfo"
	"github.com/quay/cvssinfo/datastore"
	"github.com/quay/cvssinfo/internal/httputil"
)

// ErrUnchanged is reported by Fetch when every feed's metafile matches the
// provided fingerprint.
var ErrUnchanged = errors.New("nvd: feeds unchanged")

// Fetcher downloads the yearly data feeds.
type Fetcher struct {
	c     *http.Client
	root  *url.URL
	first int
}

// NewFetcher returns a Fetcher pulling from the provided feed root, or
// [DefaultFeedRoot] if empty. A feed root must end in a slash. A nil
// http.Client means http.DefaultClient.
func NewFetcher(c *http.Client, root string) (*Fetcher, error) {
	if c == nil {
		c = http.DefaultClient
	}
	f := Fetcher{c: c, root: defaultFeedRoot, first: firstYear}
	if root != "" {
		if !strings.HasSuffix(root, "/") {
			return nil, fmt.Errorf("nvd: feed root missing trailing slash: %q", root)
		}
		u, err := url.Parse(root)
		if err != nil {
			return nil, err
		}
		f.root = u
	}
	return &f, nil
}

func metafileURL(root *url.URL, yr int) (*url.URL, error) {
	return root.Parse(fmt.Sprintf("nvdcve-2.0-%d.meta", yr))
}

func feedURL(root *url.URL, yr int) (*url.URL, error) {
	return root.Parse(fmt.Sprintf("nvdcve-2.0-%d.json.gz", yr))
}

// Fetch returns the records of every feed year, along with a fingerprint
// for change detection on later calls. When the fingerprint still matches
// the published metafiles, Fetch reports [ErrUnchanged] without downloading
// any feed bodies.
func (f *Fetcher) Fetch(ctx context.Context, hint datastore.Fingerprint) ([]cvssinfo.Record, datastore.Fingerprint, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "nvd/Fetcher.Fetch")

	// year → sha256
	prev := make(map[int]string)
	if hint != "" {
		if err := json.Unmarshal([]byte(hint), &prev); err != nil {
			return nil, hint, fmt.Errorf("nvd: bad fingerprint: %w", err)
		}
	}
	yrs := make([]int, 0)
	for y, lim := f.first, time.Now().Year(); y <= lim; y++ {
		yrs = append(yrs, y)
	}
	cur := make(map[int]string, len(yrs))
	for _, y := range yrs {
		mf, err := f.metafile(ctx, y)
		if err != nil {
			return nil, hint, err
		}
		cur[y] = strings.ToUpper(mf.SHA256)
	}
	changed := false
	for _, y := range yrs {
		if prev[y] != cur[y] {
			zlog.Info(ctx).
				Int("year", y).
				Msg("change detected")
			changed = true
			break
		}
	}
	if !changed {
		return nil, hint, ErrUnchanged
	}

	recs := make([][]cvssinfo.Record, len(yrs))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, y := range yrs {
		eg.Go(func() error {
			rs, err := f.feed(ectx, y)
			if err != nil {
				return err
			}
			recs[i] = rs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, hint, err
	}
	nh, err := json.Marshal(cur)
	if err != nil {
		panic(fmt.Errorf("unable to serialize new fingerprint: %w", err))
	}
	return slices.Concat(recs...), datastore.Fingerprint(nh), nil
}

func (f *Fetcher) metafile(ctx context.Context, yr int) (*metafile, error) {
	u, err := metafileURL(f.root, yr)
	if err != nil {
		return nil, err
	}
	zlog.Debug(ctx).
		Int("year", yr).
		Stringer("url", u).
		Msg("fetching meta file")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	res, err := f.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := httputil.CheckResponse(res, http.StatusOK); err != nil {
		return nil, fmt.Errorf("nvd: metafile for %d: %w", yr, err)
	}
	var mf metafile
	if err := mf.Parse(res.Body); err != nil {
		return nil, fmt.Errorf("nvd: metafile for %d: %w", yr, err)
	}
	zlog.Debug(ctx).
		Int("year", yr).
		Time("mod", mf.LastModified).
		Msg("parsed meta file")
	return &mf, nil
}

func (f *Fetcher) feed(ctx context.Context, yr int) ([]cvssinfo.Record, error) {
	u, err := feedURL(f.root, yr)
	if err != nil {
		return nil, err
	}
	zlog.Debug(ctx).
		Int("year", yr).
		Stringer("url", u).
		Msg("requesting json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	res, err := f.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := httputil.CheckResponse(res, http.StatusOK); err != nil {
		return nil, fmt.Errorf("nvd: feed for %d: %w", yr, err)
	}
	gz, err := gzip.NewReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("nvd: unable to create gzip reader: %w", err)
	}
	defer gz.Close()
	items, err := decodePage(gz)
	if err != nil {
		return nil, fmt.Errorf("nvd: unable to process feed for %d: %w", yr, err)
	}
	var out []cvssinfo.Record
	var skip uint
	for i := range items {
		rs := items[i].records()
		if len(rs) == 0 {
			skip++
			continue
		}
		out = append(out, rs...)
	}
	zlog.Debug(ctx).
		Int("year", yr).
		Uint("skip", skip).
		Int("count", len(out)).
		Msg("decoded feed")
	return out, nil
}
