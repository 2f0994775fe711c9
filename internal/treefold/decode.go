package treefold

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrDecode marks malformed markup.
var ErrDecode = errors.New("treefold: malformed markup")

// DecodeError wraps the parser failure and the input offset it stopped at.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("treefold: decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// Attr is one attribute on a Node.
type Attr struct {
	Name  string
	Value string
}

// Node is a parsed markup element. Text holds the character data that
// appears before the first child element, matching ElementTree's .text.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// Parse reads one markup document into a Node tree. Namespaces are dropped
// (local names only). Non-UTF-8 documents are transcoded using the charset
// in the XML declaration.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &DecodeError{Offset: dec.InputOffset(), Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root != nil {
				return nil, &DecodeError{Offset: dec.InputOffset(), Err: errors.New("multiple root elements")}
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			if len(cur.Children) == 0 {
				cur.Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, &DecodeError{Offset: dec.InputOffset(), Err: errors.New("no root element")}
	}
	return root, nil
}

// Fold converts n into its canonical value.
func Fold(n *Node) Value {
	text := strings.TrimSpace(n.Text)
	if len(n.Attrs) == 0 && len(n.Children) == 0 {
		return Scalar(text)
	}
	m := NewMap()
	for _, c := range n.Children {
		m.Add(c.Name, Fold(c))
	}
	for _, a := range n.Attrs {
		m.Set(AttrPrefix+a.Name, Scalar(a.Value))
	}
	if text != "" {
		m.Set(TextKey, Scalar(text))
	}
	return m
}

// Decode folds n and wraps it under its own name: {n.Name: Fold(n)}.
func Decode(n *Node) *Map {
	m := NewMap()
	m.Add(n.Name, Fold(n))
	return m
}

// DecodeReader parses and decodes one document.
func DecodeReader(r io.Reader) (*Map, error) {
	n, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Decode(n), nil
}

// DecodeBytes decodes b. A body that is empty or only whitespace decodes to
// an empty Map.
func DecodeBytes(b []byte) (*Map, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return NewMap(), nil
	}
	return DecodeReader(bytes.NewReader(b))
}

// DecodeString is DecodeBytes for string input.
func DecodeString(s string) (*Map, error) {
	return DecodeBytes([]byte(s))
}
