// Package health checks that the catalog API answers and that resolved
// streams are playable playlists.
package health

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/snapetech/funimationlater/internal/httpclient"
	"github.com/snapetech/funimationlater/internal/safeurl"
	"github.com/snapetech/funimationlater/internal/treefold"
)

const hlsMagic = "#EXTM3U"

// CheckAPI fetches a one-item listing from baseURL and requires a decodable
// markup response. client may be nil.
func CheckAPI(ctx context.Context, client *http.Client, baseURL string) error {
	if !safeurl.IsHTTPOrHTTPS(baseURL) {
		return fmt.Errorf("base url %q must be http(s)", baseURL)
	}
	if client == nil {
		client = httpclient.WithTimeout(httpclient.DefaultTimeout)
	}
	u := baseURL + "/longlist/content/page/?id=shows&limit=1&offset=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("api unreachable: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return fmt.Errorf("api read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned HTTP %d", resp.StatusCode)
	}
	m, err := treefold.DecodeBytes(body)
	if err != nil {
		return fmt.Errorf("api response: %w", err)
	}
	if m.Len() == 0 {
		return fmt.Errorf("api returned an empty body")
	}
	return nil
}

// CheckStream fetches the start of an HLS playlist and checks its header.
// Some CDNs reject HEAD, so this is a GET that stops after a few bytes.
func CheckStream(ctx context.Context, client *http.Client, streamURL string) error {
	if streamURL == "" {
		return fmt.Errorf("no stream url")
	}
	if _, err := safeurl.Playable("stream", streamURL); err != nil {
		return err
	}
	if client == nil {
		client = httpclient.WithTimeout(httpclient.DefaultTimeout)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("stream unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned HTTP %d", resp.StatusCode)
	}
	head := make([]byte, 64)
	n, _ := io.ReadFull(resp.Body, head)
	if !bytes.HasPrefix(bytes.TrimLeft(head[:n], "\ufeff \r\n\t"), []byte(hlsMagic)) {
		return fmt.Errorf("stream is not an HLS playlist")
	}
	return nil
}
