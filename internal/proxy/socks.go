package proxy

import (
	"context"
	"net"
	"net/http"

	"golang.org/x/net/proxy"
)

// NewHTTPClient returns an *http.Client that dials through the SOCKS5
// proxy at socksAddr, or nil when socksAddr is empty so callers keep their
// library's default client. No client-side timeout is set.
func NewHTTPClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		return nil, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
	}

	return &http.Client{Transport: transport}, nil
}
