// Package catalog models the catalog API's navigation graph:
//
//	Show --Details--> ShowDetails --Season(n)--> Season --Episode(n)--> Episode
//	Episode --Sub/Dub/Stream--> Stream --Related--> ShowDetails
//
// Every node is built purely from a decoded payload; no I/O happens until a
// transition is called, and each transition performs exactly one request by
// replaying the pointer the previous response carried. Nodes never hold their
// children or parents, so the cycle through Related exists only as a
// possible call sequence.
package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/snapetech/funimationlater/internal/casefold"
	"github.com/snapetech/funimationlater/internal/treefold"
)

// Transport performs one round trip and returns the decoded response.
// *session.Session implements it. A missing resource is reported with an
// error matching ErrNotFound, or one whose NotFound method returns true.
type Transport interface {
	Get(ctx context.Context, path, query string) (*treefold.Map, error)
	Post(ctx context.Context, path string, form url.Values) (*treefold.Map, error)
	AddHeaders(h treefold.Value) error
}

// Node is implemented by every resource in the graph.
type Node interface {
	// Pointer returns the continuation this node can follow, if any.
	Pointer() (Pointer, bool)
	// Invoke follows the pointer and returns the payload at its target.
	Invoke(ctx context.Context) (treefold.Value, error)
}

var (
	_ Node = Show{}
	_ Node = ShowDetails{}
	_ Node = Season{}
	_ Node = Episode{}
	_ Node = Stream{}
)

// resource is the state shared by every node: the session transport, the
// node's own pointer, and the platform used to pick alternates.
type resource struct {
	tr       Transport
	ptr      Pointer
	hasPtr   bool
	platform string
}

func (r resource) Pointer() (Pointer, bool) { return r.ptr, r.hasPtr }

func (r resource) Invoke(ctx context.Context) (treefold.Value, error) {
	if !r.hasPtr {
		return nil, ErrNoContinuation
	}
	return invoke(ctx, r.tr, r.ptr)
}

// follow invokes p (which is normally derived from the node's pointer) and
// expects a Map payload.
func (r resource) follow(ctx context.Context, p Pointer) (*treefold.Map, error) {
	if !r.hasPtr {
		return nil, ErrNoContinuation
	}
	v, err := invoke(ctx, r.tr, p)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*treefold.Map)
	if !ok {
		return nil, fmt.Errorf("%w: %q payload is not a map", ErrUnknownResponse, p.Target)
	}
	return m, nil
}

func invoke(ctx context.Context, tr Transport, p Pointer) (treefold.Value, error) {
	resp, err := tr.Get(ctx, p.Path, p.Params)
	if err != nil {
		return nil, err
	}
	v, err := Wrap(resp).Get(p.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownResponse, err)
	}
	return v, nil
}

// Wrap exposes the top level of a decoded response with case-insensitive keys.
func Wrap(m *treefold.Map) *casefold.Map[treefold.Value] {
	cf := &casefold.Map[treefold.Value]{}
	cf.SetCompare(casefold.Compare[treefold.Value]{
		Equal:   treefold.Equal,
		Convert: treefold.FromInterface,
	})
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		cf.Set(k, v)
	}
	return cf
}

// root returns the payload under key in a wrapped response, as a Map.
// An empty element (decoded as a Scalar) is reported as (nil, true, nil).
func root(resp *treefold.Map, key string) (m *treefold.Map, empty bool, err error) {
	v, err := Wrap(resp).Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrUnknownResponse, err)
	}
	switch t := v.(type) {
	case *treefold.Map:
		return t, false, nil
	case treefold.Scalar:
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %q has several roots", ErrUnknownResponse, key)
	}
}

func shapeErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnknownResponse, what, err)
}
