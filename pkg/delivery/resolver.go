package delivery

import (
	"fmt"
)

// Reasons recorded on a ResolutionError.
const (
	// ReasonNotFound means the target is in neither includes nor items.
	ReasonNotFound = "notFound"

	// ReasonNotResolvable is the reason the service itself reports.
	ReasonNotResolvable = "notResolvable"
)

// ResolutionError records one link whose target could not be found. It is
// data, not a failure: the field holding the link is left empty.
type ResolutionError struct {
	ID       string `json:"id"       yaml:"id"`
	LinkType string `json:"linkType" yaml:"linkType"`
	Reason   string `json:"reason"   yaml:"reason"`
}

// Error implements the error interface.
func (e ResolutionError) Error() string {
	return fmt.Sprintf("unresolvable %s link %q: %s", e.LinkType, e.ID, e.Reason)
}

// Resolution is a hydrated document.
type Resolution struct {
	Skip  int
	Limit int
	Total int

	Items           []*Entity
	IncludedEntries []*Entity
	IncludedAssets  []*Entity
	Errors          []ResolutionError

	// Expanded counts distinct resources built during the pass.
	Expanded int

	table map[Key]*Entity
}

// Lookup returns the hydrated resource for linkType and id, if it was built.
func (r *Resolution) Lookup(linkType, id string) (*Entity, bool) {
	entity, ok := r.table[Key{LinkType: linkType, ID: id}]

	return entity, ok
}

// resolver holds the state of one resolution pass. The table doubles as the
// visited set: a resource is registered before its fields are built, so an
// edge back to it returns the pointer under construction.
type resolver struct {
	index  map[Key]*RawNode
	table  map[Key]*Entity
	failed map[Key]bool
	errors []ResolutionError
	logger Logger
}

// Resolve hydrates doc into a connected graph. Every link stub to an Entry or
// Asset is replaced by its target, built at most once per pass, so that
// every reference to the same resource yields the same *Entity. Links whose
// target is absent are recorded in Resolution.Errors and left empty: nil in
// an object, dropped from an array.
//
// doc is not modified. Resolve never fails.
func Resolve(doc *Document, opts ...Option) *Resolution {
	o := newOptions(opts)
	r := newResolver(doc, o.logger)

	res := &Resolution{
		Skip:  doc.Skip,
		Limit: doc.Limit,
		Total: doc.Total,
		Items: make([]*Entity, 0, len(doc.Items)),
	}

	for i := range doc.Items {
		res.Items = append(res.Items, r.expand(&doc.Items[i]))
	}

	res.IncludedEntries = r.included(doc.Includes.Entry, o.policy)
	res.IncludedAssets = r.included(doc.Includes.Asset, o.policy)

	for _, serverErr := range doc.Errors {
		if serverErr.Details.Type != TypeLink || serverErr.Details.ID == "" {
			continue
		}

		key := Key{LinkType: serverErr.Details.LinkType, ID: serverErr.Details.ID}
		if _, built := r.table[key]; built {
			continue
		}

		reason := serverErr.Sys.ID
		if reason == "" {
			reason = ReasonNotResolvable
		}

		r.fail(key, reason)
	}

	res.Errors = r.errors
	res.Expanded = len(r.table)
	res.table = r.table

	if r.logger != nil {
		r.logger.Debug("Resolved document", map[string]interface{}{
			"items":    len(res.Items),
			"expanded": res.Expanded,
			"errors":   len(res.Errors),
			"policy":   o.policy.String(),
		})
	}

	if o.observer != nil {
		o.observer.ObserveResolution(res)
	}

	return res
}

func newResolver(doc *Document, logger Logger) *resolver {
	r := &resolver{
		index:  make(map[Key]*RawNode, len(doc.Includes.Entry)+len(doc.Includes.Asset)+len(doc.Items)),
		table:  make(map[Key]*Entity),
		failed: make(map[Key]bool),
		logger: logger,
	}

	r.indexNodes(doc.Includes.Entry)
	r.indexNodes(doc.Includes.Asset)
	// Items are consulted only for ids absent from includes, which covers
	// references between resources of the same page.
	r.indexNodes(doc.Items)

	return r
}

func (r *resolver) indexNodes(nodes []RawNode) {
	for i := range nodes {
		key, ok := nodes[i].Sys.Key()
		if !ok {
			continue
		}

		if _, exists := r.index[key]; !exists {
			r.index[key] = &nodes[i]
		}
	}
}

// included lists the entities of nodes once per key, in document order.
func (r *resolver) included(nodes []RawNode, policy ResolvePolicy) []*Entity {
	out := make([]*Entity, 0, len(nodes))
	emitted := make(map[Key]bool, len(nodes))

	for i := range nodes {
		key, ok := nodes[i].Sys.Key()
		if !ok || emitted[key] {
			continue
		}

		emitted[key] = true

		if policy == ResolveSelective {
			if entity, built := r.table[key]; built {
				out = append(out, entity)
			}

			continue
		}

		out = append(out, r.expand(r.index[key]))
	}

	return out
}

// expand builds the entity for node, or returns the one already built.
func (r *resolver) expand(node *RawNode) *Entity {
	key, linkable := node.Sys.Key()
	if linkable {
		if entity, ok := r.table[key]; ok {
			return entity
		}
	}

	entity := &Entity{Sys: node.Sys}
	if linkable {
		r.table[key] = entity
	}

	if node.Fields != nil {
		entity.Fields = make(map[string]any, len(node.Fields))
		for name, value := range node.Fields {
			hydrated, ok := r.hydrate(value)
			if !ok {
				hydrated = nil
			}

			entity.Fields[name] = hydrated
		}
	}

	return entity
}

// hydrate returns the hydrated form of a raw value. The second result is
// false when value is a link stub whose target does not exist.
func (r *resolver) hydrate(value any) (any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		if key, isLink := linkKey(typed); isLink {
			entity, ok := r.link(key)
			if !ok {
				return nil, false
			}

			return entity, true
		}

		out := make(map[string]any, len(typed))
		for name, child := range typed {
			hydrated, ok := r.hydrate(child)
			if !ok {
				hydrated = nil
			}

			out[name] = hydrated
		}

		return out, true
	case []any:
		out := make([]any, 0, len(typed))
		for _, child := range typed {
			hydrated, ok := r.hydrate(child)
			if !ok {
				continue
			}

			out = append(out, hydrated)
		}

		return out, true
	default:
		return value, true
	}
}

func (r *resolver) link(key Key) (*Entity, bool) {
	if entity, ok := r.table[key]; ok {
		return entity, true
	}

	node, ok := r.index[key]
	if !ok {
		r.fail(key, ReasonNotFound)

		return nil, false
	}

	return r.expand(node), true
}

// fail records one error per distinct key.
func (r *resolver) fail(key Key, reason string) {
	if r.failed[key] {
		return
	}

	r.failed[key] = true
	r.errors = append(r.errors, ResolutionError{ID: key.ID, LinkType: key.LinkType, Reason: reason})

	if r.logger != nil {
		r.logger.Warn("Unresolvable link", map[string]interface{}{
			"id":        key.ID,
			"link_type": key.LinkType,
			"reason":    reason,
		})
	}
}
