package httpclient

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 8

	// AcceptEncoding is sent on every request; DecodeBody handles each coding.
	AcceptEncoding = "gzip, deflate, br, zstd"
)

var defaultClient = newClient(DefaultTimeout, nil)

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		// Accept-Encoding is set explicitly so br/zstd can be negotiated;
		// the transport must not add its own gzip layer.
		DisableCompression: true,
	}
}

func newClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
		Jar:       jar,
	}
}

// Default returns the shared client without a cookie jar.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client with the given timeout and a copy of the default transport.
func WithTimeout(timeout time.Duration) *http.Client {
	t, ok := defaultClient.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: t.Clone(),
	}
}

// NewSessionClient returns a client with its own transport and a cookie jar
// scoped by the public suffix list, for one logged-in session.
func NewSessionClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return newClient(timeout, jar), nil
}
