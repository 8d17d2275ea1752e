package delivery

// Collection is a materialized page of items together with its includes and
// the links that could not be resolved.
type Collection[T any] struct {
	Skip  int `json:"skip"  yaml:"skip"`
	Limit int `json:"limit" yaml:"limit"`
	Total int `json:"total" yaml:"total"`

	Items []T `json:"items" yaml:"items"`

	IncludedEntries []*Entity `json:"includedEntries,omitempty" yaml:"includedEntries,omitempty"`
	IncludedAssets  []*Asset  `json:"includedAssets,omitempty"  yaml:"includedAssets,omitempty"`

	Errors []ResolutionError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Unmapped holds items whose content type has no type assignable to T.
	Unmapped []*Entity `json:"unmapped,omitempty" yaml:"unmapped,omitempty"`
}

// HasErrors reports whether any link was unresolvable.
func (c *Collection[T]) HasErrors() bool {
	return len(c.Errors) > 0
}

// ErrorFor returns the resolution error recorded for a link target.
func (c *Collection[T]) ErrorFor(linkType, id string) (ResolutionError, bool) {
	for _, resErr := range c.Errors {
		if resErr.LinkType == linkType && resErr.ID == id {
			return resErr, true
		}
	}

	return ResolutionError{}, false
}

// Decode parses, resolves and materializes a delivery response in one step.
func Decode[T any](data []byte, opts ...Option) (*Collection[T], error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	return Materialize[T](Resolve(doc, opts...), opts...)
}
