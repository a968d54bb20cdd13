package httputil

import (
	"net/http"
	"net/http/cookiejar"
	"time"
)

type Clients struct {
	Scraping *http.Client // cookie-carrying, for the target site
	API      *http.Client // direct, for liveness probes
}

func NewClients() *Clients {
	jar, _ := cookiejar.New(nil)

	scraping := &http.Client{
		Timeout: 15 * time.Second,
		Jar:     jar,
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 30 * time.Second},
	}
}

// ApplyBrowserHeaders makes a request look like it came from a regular
// browser session. Site-specific extras override the defaults.
func ApplyBrowserHeaders(req *http.Request, extra map[string]string) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}
