package assets

import (
	"bytes"

	"go.trai.ch/zerr"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// InjectScript appends a script element loading src to the page body.
// Pages that already load src are returned unchanged.
func InjectScript(page []byte, src string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to parse page")
	}

	if hasScript(doc, src) {
		return page, nil
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return page, nil
	}

	body.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: src}},
	})

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, zerr.Wrap(err, "failed to render page")
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func hasScript(n *html.Node, src string) bool {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		for _, attr := range n.Attr {
			if attr.Key == "src" && attr.Val == src {
				return true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasScript(c, src) {
			return true
		}
	}
	return false
}
