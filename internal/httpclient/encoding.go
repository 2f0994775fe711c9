package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// MaxBodyBytes caps how much of a decoded response body ReadBody keeps.
const MaxBodyBytes = 32 << 20

// ErrBodyTooLarge is returned when a decoded body exceeds the read limit.
var ErrBodyTooLarge = errors.New("httpclient: response body too large")

// DecodeBody wraps resp.Body with a reader for its Content-Encoding.
// Codings are undone right-to-left, as listed by the server.
func DecodeBody(resp *http.Response) (io.ReadCloser, error) {
	ce := strings.TrimSpace(resp.Header.Get("Content-Encoding"))
	if ce == "" {
		return resp.Body, nil
	}
	var r io.Reader = resp.Body
	codings := strings.Split(ce, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		next, err := decoderFor(strings.ToLower(strings.TrimSpace(codings[i])), r)
		if err != nil {
			return nil, err
		}
		r = next
	}
	return &decodedBody{Reader: r, raw: resp.Body}, nil
}

func decoderFor(coding string, r io.Reader) (io.Reader, error) {
	switch coding {
	case "", "identity":
		return r, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return gz, nil
	case "deflate":
		// Most servers send zlib-wrapped deflate; some send it raw.
		br := newPeekReader(r)
		if br.looksZlib() {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, fmt.Errorf("deflate body: %w", err)
			}
			return zr, nil
		}
		return flate.NewReader(br), nil
	case "br":
		return brotli.NewReader(r), nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd body: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported content-encoding %q", coding)
	}
}

// ReadBody decodes and reads resp.Body (up to MaxBodyBytes) and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	return ReadBodyLimit(resp, MaxBodyBytes)
}

// ReadBodyLimit is ReadBody with a caller-chosen limit. A body longer than
// limit returns the first limit bytes and ErrBodyTooLarge. On a read error
// the bytes read so far are returned with it.
func ReadBodyLimit(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	body, err := DecodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	b, err := io.ReadAll(io.LimitReader(body, limit+1))
	if int64(len(b)) > limit {
		return b[:limit], fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, limit)
	}
	return b, err
}

type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (d *decodedBody) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		c.Close()
	}
	return d.raw.Close()
}

// peekReader lets the deflate path look at the first two bytes.
type peekReader struct {
	r    io.Reader
	head []byte
}

func newPeekReader(r io.Reader) *peekReader {
	p := &peekReader{r: r}
	buf := make([]byte, 2)
	n, _ := io.ReadFull(r, buf)
	p.head = buf[:n]
	return p
}

// looksZlib checks the RFC 1950 header: CM=8 and FCHECK makes the pair divisible by 31.
func (p *peekReader) looksZlib() bool {
	if len(p.head) < 2 {
		return false
	}
	cmf, flg := p.head[0], p.head[1]
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func (p *peekReader) Read(b []byte) (int, error) {
	if len(p.head) > 0 {
		n := copy(b, p.head)
		p.head = p.head[n:]
		return n, nil
	}
	return p.r.Read(b)
}
