// Package component discovers pages, layouts, UI components, hooks, context
// providers and utilities in a repository listing using text patterns, and
// links them into a usage graph.
//
// Matching is purely lexical. Nothing here builds a syntax tree, so the
// accepted input set is defined by the patterns in this package.
package component

// FileKind distinguishes files from directories in a repository listing.
type FileKind string

const (
	KindBlob FileKind = "blob"
	KindTree FileKind = "tree"
)

// RepositoryFile is one entry of a repository tree listing. Path is its identity.
type RepositoryFile struct {
	Path string   `json:"path"`
	Kind FileKind `json:"kind"`
	URL  string   `json:"url"`
}

// ComponentType is the role a classified file plays in the application.
type ComponentType string

const (
	TypePage      ComponentType = "page"
	TypeLayout    ComponentType = "layout"
	TypeComponent ComponentType = "component"
	TypeHook      ComponentType = "hook"
	TypeUtility   ComponentType = "utility"
	TypeContext   ComponentType = "context"
)

// AllTypes lists every ComponentType in declaration order.
var AllTypes = []ComponentType{TypePage, TypeLayout, TypeComponent, TypeHook, TypeUtility, TypeContext}

// PropDescriptor describes one field of a component's props interface.
type PropDescriptor struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Required     bool   `json:"required"`
	Description  string `json:"description,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty"`
}

// ComponentMetadata is a node of the usage graph. Name is the graph identity:
// two files that yield the same name are the same node to BuildRelationships.
//
// Uses is filled during extraction; UsedBy stays empty until
// BuildRelationships runs over the complete set.
type ComponentMetadata struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Type        ComponentType    `json:"type"`
	File        string           `json:"file"`
	Props       []PropDescriptor `json:"props"`
	Uses        []string         `json:"uses"`
	UsedBy      []string         `json:"usedBy"`
	Exports     []string         `json:"exports"`
	Content     string           `json:"content,omitempty"`
}

// Clone returns a deep copy so emitted records never alias the working set.
func (c ComponentMetadata) Clone() ComponentMetadata {
	out := c
	out.Props = append([]PropDescriptor{}, c.Props...)
	out.Uses = append([]string{}, c.Uses...)
	out.UsedBy = append([]string{}, c.UsedBy...)
	out.Exports = append([]string{}, c.Exports...)
	return out
}
