package delivery

import (
	"time"
)

// Resource types carried in sys.type.
const (
	TypeEntry        = "Entry"
	TypeAsset        = "Asset"
	TypeLink         = "Link"
	TypeDeletedEntry = "DeletedEntry"
	TypeDeletedAsset = "DeletedAsset"
	TypeArray        = "Array"
	TypeError        = "Error"
)

// Link types expanded by the resolver. Links of any other link type
// (ContentType, Space, Environment) are metadata and stay as they are.
const (
	LinkTypeEntry = "Entry"
	LinkTypeAsset = "Asset"
)

// Sys represents the system metadata block present on every resource.
type Sys struct {
	ID          string     `json:"id"                    yaml:"id"`
	Type        string     `json:"type"                  yaml:"type"`
	LinkType    string     `json:"linkType,omitempty"    yaml:"linkType,omitempty"`
	ContentType *Link      `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	Space       *Link      `json:"space,omitempty"       yaml:"space,omitempty"`
	Environment *Link      `json:"environment,omitempty" yaml:"environment,omitempty"`
	Revision    int        `json:"revision,omitempty"    yaml:"revision,omitempty"`
	Locale      string     `json:"locale,omitempty"      yaml:"locale,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"   yaml:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"   yaml:"updatedAt,omitempty"`
}

// ContentTypeID returns the id of the entry's content type, or "" when the
// resource carries none (assets, deleted resources).
func (s Sys) ContentTypeID() string {
	if s.ContentType == nil {
		return ""
	}

	return s.ContentType.Sys.ID
}

// Key returns the linkable identity of the resource. The second result is
// false for resources that cannot be the target of a link.
func (s Sys) Key() (Key, bool) {
	if s.ID == "" {
		return Key{}, false
	}

	switch s.Type {
	case TypeEntry:
		return Key{LinkType: LinkTypeEntry, ID: s.ID}, true
	case TypeAsset:
		return Key{LinkType: LinkTypeAsset, ID: s.ID}, true
	default:
		return Key{}, false
	}
}

// Link represents a typed reference to another resource.
type Link struct {
	Sys LinkSys `json:"sys" yaml:"sys"`
}

// LinkSys is the sys block of a link.
type LinkSys struct {
	ID       string `json:"id"       yaml:"id"`
	Type     string `json:"type"     yaml:"type"`
	LinkType string `json:"linkType" yaml:"linkType"`
}

// NewLink creates a link to the resource identified by linkType and id.
func NewLink(linkType, id string) Link {
	return Link{Sys: LinkSys{ID: id, Type: TypeLink, LinkType: linkType}}
}

// Key identifies a linkable resource within one document.
type Key struct {
	LinkType string
	ID       string
}

// String returns the key as "linkType:id".
func (k Key) String() string {
	return k.LinkType + ":" + k.ID
}

// Asset represents a media resource. Its fields are lifted to the top level
// and the sys block is attached under Sys.
type Asset struct {
	Sys         Sys        `json:"sys"                   yaml:"sys"`
	Title       string     `json:"title,omitempty"       yaml:"title,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	File        *AssetFile `json:"file,omitempty"        yaml:"file,omitempty"`
}

// AssetFile describes the binary behind an asset.
type AssetFile struct {
	URL         string       `json:"url"               yaml:"url"`
	FileName    string       `json:"fileName"          yaml:"fileName"`
	ContentType string       `json:"contentType"       yaml:"contentType"`
	Details     *FileDetails `json:"details,omitempty" yaml:"details,omitempty"`
}

// FileDetails contains size information for an asset file.
type FileDetails struct {
	Size  int64         `json:"size"            yaml:"size"`
	Image *ImageDetails `json:"image,omitempty" yaml:"image,omitempty"`
}

// ImageDetails contains the dimensions of an image asset.
type ImageDetails struct {
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ContentResource is implemented by types that take a whole resource node:
// the sys block together with the fields object. Types that do not implement
// it receive the fields lifted to their top level.
type ContentResource interface {
	ResourceSys() *Sys
}

// Entry is a generic whole-node representation of an entry with typed fields.
type Entry[F any] struct {
	Sys    Sys `json:"sys"    yaml:"sys"`
	Fields F   `json:"fields" yaml:"fields"`
}

// ResourceSys implements ContentResource.
func (e *Entry[F]) ResourceSys() *Sys {
	return &e.Sys
}
