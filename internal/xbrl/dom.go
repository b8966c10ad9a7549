package xbrl

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrMalformedDocument marks input that is not parseable XML. It is the one
// hard failure in extraction; everything else degrades to absence.
var ErrMalformedDocument = eris.New("xbrl: malformed document")

// element is one node of the decoded document. Children and attribute order
// follow the source document; text holds only character data directly under
// the element.
type element struct {
	tag      string // Clark notation: {namespace}local
	attrs    map[string]string
	text     string
	children []*element
}

// attr returns the attribute value by local name, or "" when absent.
func (e *element) attr(name string) string {
	return e.attrs[name]
}

// trimmedText returns the element's text with surrounding whitespace
// stripped.
func (e *element) trimmedText() string {
	return strings.TrimSpace(e.text)
}

// findChild returns the first direct child with the given Clark tag.
func (e *element) findChild(tag string) *element {
	for _, c := range e.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

// walk visits the element and all descendants in document order.
func (e *element) walk(fn func(*element)) {
	fn(e)
	for _, c := range e.children {
		c.walk(fn)
	}
}

// decodeDocument reads a whole XML document into an element tree. Real-world
// filings are not always UTF-8, so declared charsets are honored.
func decodeDocument(r io.Reader) (*element, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xbrl: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var root *element
	var stack []*element

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(ErrMalformedDocument, "read token: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{
				tag:   JoinTag(t.Name.Space, t.Name.Local),
				attrs: make(map[string]string, len(t.Attr)),
			}
			for _, a := range t.Attr {
				el.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, eris.Wrap(ErrMalformedDocument, "multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, eris.Wrap(ErrMalformedDocument, "unbalanced end element")
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil {
		return nil, eris.Wrap(ErrMalformedDocument, "no root element")
	}
	if len(stack) != 0 {
		return nil, eris.Wrap(ErrMalformedDocument, "unclosed elements at EOF")
	}
	return root, nil
}
