package provider

import (
	"net"
	"net/http"
	"time"

	"github.com/ghiac/modelrelay/config"
)

// newProviderClient builds the pooled HTTP client for one provider.
// There is no whole-request timeout on the client itself: buffered
// calls bound the exchange with a context deadline, while streaming
// calls may legitimately outlive the provider timeout once the
// response headers have arrived.
func newProviderClient(p *config.Provider) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   15 * time.Second,
			ResponseHeaderTimeout: p.TimeoutDuration(),
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}
