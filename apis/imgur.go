package apis

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

const imgurBase = "https://api.imgur.com/3"

// ClimateSubreddits are the galleries ClimateMemes draws from.
var ClimateSubreddits = []string{
	"climatechange", "climate", "world", "environment", "sustainability",
	"ClimateActionPlan", "EcoFriendly", "globalwarming", "global", "change",
}

// Imgur searches the public Imgur gallery.
type Imgur struct {
	httpConfig
	ClientID string
}

// NewImgur returns a client authenticating with clientID.
func NewImgur(clientID string, hc *http.Client) *Imgur {
	return &Imgur{ClientID: clientID, httpConfig: httpConfig{HTTPClient: hc}}
}

func (c *Imgur) links(ctx context.Context, rawURL string) ([]string, error) {
	if c.ClientID == "" {
		return nil, ErrMissingKey
	}
	h := http.Header{}
	h.Set("Authorization", "Client-ID "+c.ClientID)
	res, err := c.getJSON(ctx, "imgur", rawURL, h)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, item := range res.Get("data").Array() {
		if link := item.Get("link").String(); link != "" {
			out = append(out, link)
		}
	}
	return out, nil
}

// SearchGallery returns image links matching keyword.
func (c *Imgur) SearchGallery(ctx context.Context, keyword string) ([]string, error) {
	return c.links(ctx, imgurBase+"/gallery/search?q="+url.QueryEscape(keyword))
}

// SubredditGallery returns the hot links of a subreddit gallery.
func (c *Imgur) SubredditGallery(ctx context.Context, subreddit string) ([]string, error) {
	return c.links(ctx, imgurBase+"/gallery/r/"+url.PathEscape(subreddit)+"/hot")
}

// ClimateMemes fetches every ClimateSubreddits gallery concurrently and
// concatenates their links in list order. Galleries that fail are skipped;
// an error is returned only when all of them fail.
func (c *Imgur) ClimateMemes(ctx context.Context) ([]string, error) {
	if c.ClientID == "" {
		return nil, ErrMissingKey
	}
	results := make([][]string, len(ClimateSubreddits))
	var (
		mu      sync.Mutex
		lastErr error
		failed  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, sub := range ClimateSubreddits {
		g.Go(func() error {
			links, err := c.SubredditGallery(gctx, sub)
			if err != nil {
				mu.Lock()
				lastErr = err
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = links
			return nil
		})
	}
	_ = g.Wait()
	if failed == len(ClimateSubreddits) {
		return nil, lastErr
	}
	out := []string{}
	for _, links := range results {
		out = append(out, links...)
	}
	return out, nil
}
