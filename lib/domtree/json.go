package domtree

import "encoding/json"

// wireNode is the JSON shape produced by the in-page serializer the
// browser renderer injects (see lib/renderer/browser). Text nodes come
// through with an empty tag.
type wireNode struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Rect     Rect              `json:"rect"`
	Children []wireNode        `json:"children,omitempty"`
}

// DecodeJSON rebuilds a tree from the serialized form, restoring parent
// links which JSON cannot carry.
func DecodeJSON(data []byte) (*Node, error) {
	var wire wireNode
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	return fromWire(wire, nil), nil
}

func fromWire(w wireNode, parent *Node) *Node {
	n := &Node{
		Tag:    w.Tag,
		Attrs:  w.Attrs,
		Data:   w.Text,
		Rect:   w.Rect,
		Parent: parent,
	}
	for _, c := range w.Children {
		n.Children = append(n.Children, fromWire(c, n))
	}
	return n
}
