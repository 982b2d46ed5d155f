// Package geo resolves a visitor network address to a coarse location.
// Lookups are best-effort: a Locator can return empty fields but must
// never fail the caller.
package geo

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Location is the resolved city/country for an address. Nil fields mean
// the lookup had no answer.
type Location struct {
	City    *string
	Country *string
}

// Locator resolves a network address to a Location.
type Locator interface {
	Lookup(address string) Location
}

// Static is the no-network locator: loopback and unparsable addresses
// resolve to nothing, everything else to the marketplace's home country
// placeholder. Stands in until a real provider is configured.
type Static struct{}

func (Static) Lookup(address string) Location {
	if address == "" || isPrivate(address) {
		return Location{}
	}
	country := "Argentina"
	return Location{Country: &country}
}

type cacheItem struct {
	loc     Location
	expires time.Time
}

// HTTP resolves addresses via the ipwho.is API with a per-address TTL
// cache. Failures fall back to the static answer so a provider outage
// never degrades view tracking.
type HTTP struct {
	client   *http.Client
	fallback Static

	mu    sync.Mutex
	cache map[string]cacheItem
	ttl   time.Duration
}

// NewHTTP returns an HTTP locator with the given cache TTL.
func NewHTTP(ttl time.Duration) *HTTP {
	return &HTTP{
		client: &http.Client{Timeout: 2 * time.Second},
		cache:  make(map[string]cacheItem),
		ttl:    ttl,
	}
}

func (g *HTTP) Lookup(address string) Location {
	if address == "" || isPrivate(address) {
		return Location{}
	}

	now := time.Now()
	g.mu.Lock()
	if item, ok := g.cache[address]; ok && now.Before(item.expires) {
		g.mu.Unlock()
		return item.loc
	}
	g.mu.Unlock()

	loc, ok := g.fetch(address)
	if !ok {
		return g.fallback.Lookup(address)
	}

	g.mu.Lock()
	g.cache[address] = cacheItem{loc: loc, expires: now.Add(g.ttl)}
	g.mu.Unlock()

	return loc
}

func (g *HTTP) fetch(address string) (Location, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://ipwho.is/"+address, nil)
	if err != nil {
		return Location{}, false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Location{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, false
	}

	var out struct {
		Success bool   `json:"success"`
		City    string `json:"city"`
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Location{}, false
	}
	if !out.Success {
		return Location{}, false
	}

	loc := Location{}
	if city := strings.TrimSpace(out.City); city != "" {
		loc.City = &city
	}
	if country := strings.TrimSpace(out.Country); country != "" {
		loc.Country = &country
	}
	return loc, true
}

func isPrivate(address string) bool {
	parsed := net.ParseIP(address)
	if parsed == nil {
		return true
	}
	if parsed.IsLoopback() {
		return true
	}
	if v4 := parsed.To4(); v4 != nil {
		switch {
		case v4[0] == 10:
			return true
		case v4[0] == 172 && v4[1] >= 16 && v4[1] <= 31:
			return true
		case v4[0] == 192 && v4[1] == 168:
			return true
		case v4[0] == 169 && v4[1] == 254:
			return true
		}
	}
	return false
}
