package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// robotsCache fetches robots.txt once per host. A nil entry means everything is allowed.
type robotsCache struct {
	client *resty.Client
	log    zerolog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsCache(client *resty.Client, log zerolog.Logger) *robotsCache {
	return &robotsCache{
		client: client,
		log:    log,
		hosts:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether agent may fetch pageURL. A missing or unreadable robots.txt allows everything.
func (c *robotsCache) Allowed(ctx context.Context, pageURL, agent string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return false, fmt.Errorf("invalid URL %q", pageURL)
	}

	key := u.Scheme + "://" + u.Host
	c.mu.Lock()
	robots, seen := c.hosts[key]
	c.mu.Unlock()

	if !seen {
		robots = c.load(ctx, key)
		if err := ctx.Err(); err != nil {
			return false, err
		}
		c.mu.Lock()
		c.hosts[key] = robots
		c.mu.Unlock()
	}

	if robots == nil {
		return true, nil
	}
	return robots.TestAgent(u.RequestURI(), agent), nil
}

func (c *robotsCache) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	res, err := c.client.R().SetContext(ctx).Get(robotsURL)
	if err != nil || res.StatusCode() != http.StatusOK {
		c.log.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt unavailable, allowing all")
		return nil
	}

	robots, err := robotstxt.FromBytes(res.Body())
	if err != nil {
		c.log.Warn().Err(err).Str("url", robotsURL).Msg("failed to parse robots.txt, allowing all")
		return nil
	}
	return robots
}
