package catalog

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/snapetech/funimationlater/internal/treefold"
)

// fakeTransport answers from canned markup and records every call.
type fakeTransport struct {
	t      *testing.T
	routes map[string]string // "path|query" -> markup
	handle func(path, query string) (string, error)

	gets    []string
	posts   []url.Values
	headers []treefold.Value
	login   string
}

func newFake(t *testing.T, routes map[string]string) *fakeTransport {
	return &fakeTransport{t: t, routes: routes}
}

func (f *fakeTransport) calls() int { return len(f.gets) + len(f.posts) }

func (f *fakeTransport) Get(ctx context.Context, path, query string) (*treefold.Map, error) {
	key := path + "|" + query
	f.gets = append(f.gets, key)
	var body string
	switch {
	case f.handle != nil:
		b, err := f.handle(path, query)
		if err != nil {
			return nil, err
		}
		body = b
	default:
		b, ok := f.routes[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		body = b
	}
	return treefold.DecodeString(body)
}

func (f *fakeTransport) Post(ctx context.Context, path string, form url.Values) (*treefold.Map, error) {
	f.posts = append(f.posts, form)
	return treefold.DecodeString(f.login)
}

func (f *fakeTransport) AddHeaders(h treefold.Value) error {
	f.headers = append(f.headers, h)
	return nil
}

func decode(t *testing.T, s string) *treefold.Map {
	t.Helper()
	m, err := treefold.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// payload decodes s and returns the value under its root element.
func payload(t *testing.T, s string) *treefold.Map {
	t.Helper()
	m := decode(t, s)
	keys := m.Keys()
	if len(keys) != 1 {
		t.Fatalf("want one root, got %v", keys)
	}
	c, err := m.Child(keys[0])
	if err != nil {
		t.Fatal(err)
	}
	return c
}

const listingXML = `<items>
  <item>
    <id>7</id>
    <title>Cowboy Bebop</title>
    <thumbnail>http://img.example.com/cb.jpg<alternate platforms="ios">http://img.example.com/cb-ios.jpg</alternate></thumbnail>
    <pointer><target>ShowMain</target><path>/detail/</path><params>pk=7</params></pointer>
  </item>
  <item>
    <id>8</id>
    <title>Trigun</title>
    <thumbnail>http://img.example.com/tr.jpg</thumbnail>
    <pointer><target>showmain</target><path>/detail/</path><params>pk=8</params></pointer>
  </item>
</items>`

const detailsXML = `<showmain>
  <hero><item>
    <title>Cowboy Bebop</title>
    <thumbnail>http://img.example.com/hero.jpg<alternate platforms="android">http://img.example.com/hero-a.jpg</alternate><alternate platforms="ios,tvos">http://img.example.com/hero-ios.jpg</alternate></thumbnail>
    <content>
      <description>Bounty hunters in space.</description>
      <metadata><format>TV</format><releaseYear>1998</releaseYear></metadata>
    </content>
  </item></hero>
  <pointer>
    <target>longlist</target>
    <path>/longlist/content/page/</path>
    <params>id=12&amp;title=Cowboy+Bebop</params>
    <longList><palette><filter><choices>
      <button><value>1</value><title>Season 1</title></button>
      <button><value>2</value><title>Season 2</title></button>
    </choices></filter></palette></longList>
  </pointer>
  <pointer><target>similar</target><path>/similar/</path><params>pk=7</params></pointer>
</showmain>`

const seasonXML = `<longlist><items>
  <item>
    <id>100</id>
    <title>Asteroid Blues</title>
    <content>
      <description>Spike and Jet chase a drug dealer.</description>
      <metadata><duration>1440</duration><format>TV</format><episodeNumber>1</episodeNumber><languages>English, Japanese</languages></metadata>
    </content>
    <pointer><target>player</target><path>/player/</path><params>id=100</params></pointer>
  </item>
  <item>
    <id>101</id>
    <title>Mushroom Samba</title>
    <content>
      <description>Special.</description>
      <metadata><duration>600</duration><format>OVA</format><episodeNumber>1.5</episodeNumber><languages>Japanese</languages></metadata>
    </content>
    <pointer><target>player</target><path>/player/</path><params>id=101</params></pointer>
  </item>
</items></longlist>`

const streamXML = `<player><item>
  <video>
    <id>555</id>
    <title>Asteroid Blues</title>
    <thumbnail>http://img.example.com/e1.jpg</thumbnail>
    <content><metadata><duration>1440</duration><episode>Episode 1</episode><season>Season 1</season><showName>Cowboy Bebop</showName></metadata></content>
  </video>
  <hls><url>https://cdn.example.com/e1.m3u8</url><closedCaptionUrl>https://cdn.example.com/e1.vtt</closedCaptionUrl></hls>
  <related><alternate platforms="ios"><target>showmain</target><path>/detail/</path><params>pk=7</params></alternate></related>
  <ratings><tv region="US">TV-14</tv><tv region="CA">14+</tv></ratings>
</item></player>`

// graphRoutes serves the whole show -> stream -> related chain.
func graphRoutes() map[string]string {
	return map[string]string{
		"/detail/|pk=7": detailsXML,
		"/longlist/content/page/|id=12&title=Cowboy+Bebop&season=1": seasonXML,
		"/longlist/content/page/|id=12&title=Cowboy+Bebop&season=2": `<longlist><items/></longlist>`,
		"/player/|id=100":                streamXML,
		"/player/|id=100&audio=japanese": streamXML,
		"/player/|id=100&audio=english":  streamXML,
	}
}
