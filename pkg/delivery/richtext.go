package delivery

import (
	"encoding/json"
	"fmt"
)

// Rich text node types.
const (
	NodeDocument            = "document"
	NodeParagraph           = "paragraph"
	NodeHeading1            = "heading-1"
	NodeHeading2            = "heading-2"
	NodeHeading3            = "heading-3"
	NodeHeading4            = "heading-4"
	NodeHeading5            = "heading-5"
	NodeHeading6            = "heading-6"
	NodeText                = "text"
	NodeHyperlink           = "hyperlink"
	NodeEntryHyperlink      = "entry-hyperlink"
	NodeAssetHyperlink      = "asset-hyperlink"
	NodeEmbeddedEntryBlock  = "embedded-entry-block"
	NodeEmbeddedEntryInline = "embedded-entry-inline"
	NodeEmbeddedAssetBlock  = "embedded-asset-block"
	NodeOrderedList         = "ordered-list"
	NodeUnorderedList       = "unordered-list"
	NodeListItem            = "list-item"
	NodeQuote               = "blockquote"
	NodeHR                  = "hr"
	NodeTable               = "table"
	NodeTableRow            = "table-row"
	NodeTableCell           = "table-cell"
	NodeTableHeaderCell     = "table-header-cell"
)

// RichTextNode is one node of a rich text tree. The set of implementations
// is closed; node types this package does not know become *CustomNode.
type RichTextNode interface {
	NodeType() string
	richTextNode()
}

// RichText is the document node at the root of a rich text field.
type RichText struct {
	Content []RichTextNode
}

// Paragraph is a block of inline nodes.
type Paragraph struct {
	Content []RichTextNode
}

// Heading is a heading of level 1 through 6.
type Heading struct {
	Level   int
	Content []RichTextNode
}

// Mark is a text decoration such as bold or code.
type Mark struct {
	Type string
}

// Text is a run of text.
type Text struct {
	Value string
	Marks []Mark
}

// HasMark reports whether the text carries markType.
func (t *Text) HasMark(markType string) bool {
	for _, mark := range t.Marks {
		if mark.Type == markType {
			return true
		}
	}

	return false
}

// Hyperlink links to an external URI.
type Hyperlink struct {
	URI     string
	Content []RichTextNode
}

// EntryHyperlink links to an entry. Target is nil when the entry was not
// resolvable.
type EntryHyperlink struct {
	Target  *Entity
	Content []RichTextNode
}

// AssetHyperlink links to an asset.
type AssetHyperlink struct {
	Target  *Entity
	Content []RichTextNode
}

// EmbeddedEntryBlock embeds an entry as a block.
type EmbeddedEntryBlock struct {
	Target *Entity
}

// EmbeddedEntryInline embeds an entry inside a paragraph.
type EmbeddedEntryInline struct {
	Target *Entity
}

// EmbeddedAssetBlock embeds an asset as a block.
type EmbeddedAssetBlock struct {
	Target *Entity
}

// List is an ordered or unordered list of list items.
type List struct {
	Ordered bool
	Content []RichTextNode
}

// ListItem is one item of a List.
type ListItem struct {
	Content []RichTextNode
}

// Quote is a block quote.
type Quote struct {
	Content []RichTextNode
}

// HorizontalRule is a thematic break.
type HorizontalRule struct{}

// Table is a table of rows.
type Table struct {
	Content []RichTextNode
}

// TableRow is one row of a Table.
type TableRow struct {
	Content []RichTextNode
}

// TableCell is a body or header cell.
type TableCell struct {
	Header  bool
	Content []RichTextNode
}

// CustomNode keeps a node whose type is unknown, with its data and children.
type CustomNode struct {
	Type    string
	Data    map[string]any
	Value   string
	Content []RichTextNode
}

func (*RichText) NodeType() string { return NodeDocument }
func (*Paragraph) NodeType() string { return NodeParagraph }
func (h *Heading) NodeType() string { return fmt.Sprintf("heading-%d", h.Level) }
func (*Text) NodeType() string { return NodeText }
func (*Hyperlink) NodeType() string { return NodeHyperlink }
func (*EntryHyperlink) NodeType() string { return NodeEntryHyperlink }
func (*AssetHyperlink) NodeType() string { return NodeAssetHyperlink }
func (*EmbeddedEntryBlock) NodeType() string { return NodeEmbeddedEntryBlock }
func (*EmbeddedEntryInline) NodeType() string { return NodeEmbeddedEntryInline }
func (*EmbeddedAssetBlock) NodeType() string { return NodeEmbeddedAssetBlock }
func (*ListItem) NodeType() string { return NodeListItem }
func (*Quote) NodeType() string { return NodeQuote }
func (*HorizontalRule) NodeType() string { return NodeHR }
func (*Table) NodeType() string { return NodeTable }
func (*TableRow) NodeType() string { return NodeTableRow }
func (c *CustomNode) NodeType() string { return c.Type }

func (l *List) NodeType() string {
	if l.Ordered {
		return NodeOrderedList
	}

	return NodeUnorderedList
}

func (c *TableCell) NodeType() string {
	if c.Header {
		return NodeTableHeaderCell
	}

	return NodeTableCell
}

func (*RichText) richTextNode()            {}
func (*Paragraph) richTextNode()           {}
func (*Heading) richTextNode()             {}
func (*Text) richTextNode()                {}
func (*Hyperlink) richTextNode()           {}
func (*EntryHyperlink) richTextNode()      {}
func (*AssetHyperlink) richTextNode()      {}
func (*EmbeddedEntryBlock) richTextNode()  {}
func (*EmbeddedEntryInline) richTextNode() {}
func (*EmbeddedAssetBlock) richTextNode()  {}
func (*List) richTextNode()                {}
func (*ListItem) richTextNode()            {}
func (*Quote) richTextNode()               {}
func (*HorizontalRule) richTextNode()      {}
func (*Table) richTextNode()               {}
func (*TableRow) richTextNode()            {}
func (*TableCell) richTextNode()           {}
func (*CustomNode) richTextNode()          {}

// rawRichNode is the decoded shape shared by every node type.
type rawRichNode struct {
	nodeType string
	data     map[string]any
	value    string
	marks    []Mark
	content  []RichTextNode
}

func (n *rawRichNode) target() *Entity {
	target, _ := n.data["target"].(*Entity)

	return target
}

type nodeBuilder func(n *rawRichNode) RichTextNode

func heading(level int) nodeBuilder {
	return func(n *rawRichNode) RichTextNode { return &Heading{Level: level, Content: n.content} }
}

var nodeBuilders = map[string]nodeBuilder{
	NodeDocument:  func(n *rawRichNode) RichTextNode { return &RichText{Content: n.content} },
	NodeParagraph: func(n *rawRichNode) RichTextNode { return &Paragraph{Content: n.content} },
	NodeHeading1:  heading(1),
	NodeHeading2:  heading(2),
	NodeHeading3:  heading(3),
	NodeHeading4:  heading(4),
	NodeHeading5:  heading(5),
	NodeHeading6:  heading(6),
	NodeText:      func(n *rawRichNode) RichTextNode { return &Text{Value: n.value, Marks: n.marks} },
	NodeHyperlink: func(n *rawRichNode) RichTextNode {
		uri, _ := n.data["uri"].(string)

		return &Hyperlink{URI: uri, Content: n.content}
	},
	NodeEntryHyperlink: func(n *rawRichNode) RichTextNode {
		return &EntryHyperlink{Target: n.target(), Content: n.content}
	},
	NodeAssetHyperlink: func(n *rawRichNode) RichTextNode {
		return &AssetHyperlink{Target: n.target(), Content: n.content}
	},
	NodeEmbeddedEntryBlock:  func(n *rawRichNode) RichTextNode { return &EmbeddedEntryBlock{Target: n.target()} },
	NodeEmbeddedEntryInline: func(n *rawRichNode) RichTextNode { return &EmbeddedEntryInline{Target: n.target()} },
	NodeEmbeddedAssetBlock:  func(n *rawRichNode) RichTextNode { return &EmbeddedAssetBlock{Target: n.target()} },
	NodeOrderedList:         func(n *rawRichNode) RichTextNode { return &List{Ordered: true, Content: n.content} },
	NodeUnorderedList:       func(n *rawRichNode) RichTextNode { return &List{Content: n.content} },
	NodeListItem:            func(n *rawRichNode) RichTextNode { return &ListItem{Content: n.content} },
	NodeQuote:               func(n *rawRichNode) RichTextNode { return &Quote{Content: n.content} },
	NodeHR:                  func(*rawRichNode) RichTextNode { return &HorizontalRule{} },
	NodeTable:               func(n *rawRichNode) RichTextNode { return &Table{Content: n.content} },
	NodeTableRow:            func(n *rawRichNode) RichTextNode { return &TableRow{Content: n.content} },
	NodeTableCell:           func(n *rawRichNode) RichTextNode { return &TableCell{Content: n.content} },
	NodeTableHeaderCell:     func(n *rawRichNode) RichTextNode { return &TableCell{Header: true, Content: n.content} },
}

// ParseRichText builds a rich text tree from the hydrated value of a rich
// text field. Link targets inside the tree keep their resolved *Entity.
func ParseRichText(value any) (*RichText, error) {
	node, err := parseRichNode(value, "content")
	if err != nil {
		return nil, err
	}

	doc, ok := node.(*RichText)
	if !ok {
		return nil, fmt.Errorf("%w: root node is %s", ErrNotRichText, node.NodeType())
	}

	return doc, nil
}

func parseRichNode(value any, path string) (RichTextNode, error) {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrNotRichText, path, value)
	}

	nodeType, _ := raw["nodeType"].(string)
	if nodeType == "" {
		return nil, fmt.Errorf("%w at %s", ErrUnknownNodeType, path)
	}

	node := &rawRichNode{nodeType: nodeType}
	node.data, _ = raw["data"].(map[string]any)
	node.value, _ = raw["value"].(string)

	if marks, ok := raw["marks"].([]any); ok {
		for _, mark := range marks {
			if markMap, ok := mark.(map[string]any); ok {
				markType, _ := markMap["type"].(string)
				node.marks = append(node.marks, Mark{Type: markType})
			}
		}
	}

	if children, ok := raw["content"].([]any); ok {
		node.content = make([]RichTextNode, 0, len(children))

		for i, child := range children {
			parsed, err := parseRichNode(child, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}

			node.content = append(node.content, parsed)
		}
	}

	build, known := nodeBuilders[nodeType]
	if !known {
		return &CustomNode{Type: nodeType, Data: node.data, Value: node.value, Content: node.content}, nil
	}

	return build(node), nil
}

// UnmarshalJSON decodes a rich text document that has not been through the
// resolver. Link targets are left nil.
func (d *RichText) UnmarshalJSON(data []byte) error {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("decoding rich text: %w", err)
	}

	doc, err := ParseRichText(raw)
	if err != nil {
		return err
	}

	*d = *doc

	return nil
}
