package remote

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// DefaultUserAgents is the pool used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// uaTransport sets a random browser User-Agent on requests that lack one.
type uaTransport struct {
	base http.RoundTripper
	ua   *uaPool
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// Never mutate the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua.random())
	return t.base.RoundTrip(r)
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func newUAPool(uas []string) *uaPool {
	if len(uas) == 0 {
		uas = DefaultUserAgents
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: append([]string(nil), uas...),
	}
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

func newTransport(uas []string) *uaTransport {
	return &uaTransport{
		base: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			MaxIdleConnsPerHost:   4,
		},
		ua: newUAPool(uas),
	}
}
