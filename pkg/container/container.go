// Package container extracts named rectangular slots from a template
// document.
//
// A template document marks its slots with a reserved top-level group
// (default "!!TEMPLATE"). Every direct child of that group becomes one
// [design.Container], in document order, with its marker prefix (default
// "!!") removed from the name:
//
//	tpl := container.Extract(doc, container.Options{})
//	for _, c := range tpl.Containers {
//	    fmt.Println(c.ID, c.Name, c.Bounds)
//	}
//
// A document without the marker group is not an error; it simply yields no
// containers.
package container

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/document"
)

const (
	// DefaultTemplateName is the reserved name of the group holding containers.
	DefaultTemplateName = "!!TEMPLATE"
	// DefaultPrefix is the marker stripped from container names.
	DefaultPrefix = "!!"
)

// Options configures extraction. Zero values select the defaults.
type Options struct {
	TemplateName string
	Prefix       string
}

func (o Options) withDefaults() Options {
	if o.TemplateName == "" {
		o.TemplateName = DefaultTemplateName
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	return o
}

// Template is the result of an extraction.
type Template struct {
	CanvasW    int                `json:"canvasW"`
	CanvasH    int                `json:"canvasH"`
	Containers []design.Container `json:"containers"`
}

// ByName returns the first container whose cleaned name equals name.
func (t Template) ByName(name string) (design.Container, bool) {
	for _, c := range t.Containers {
		if c.Name == name {
			return c, true
		}
	}
	return design.Container{}, false
}

// ByID returns the container with the given id.
func (t Template) ByID(id string) (design.Container, bool) {
	for _, c := range t.Containers {
		if c.ID == id {
			return c, true
		}
	}
	return design.Container{}, false
}

var whitespace = regexp.MustCompile(`\s+`)

// Extract returns the containers defined by doc's template group.
func Extract(doc *document.Document, opts Options) Template {
	opts = opts.withDefaults()
	if doc == nil {
		return Template{Containers: []design.Container{}}
	}
	tpl := Template{
		CanvasW:    doc.Width,
		CanvasH:    doc.Height,
		Containers: []design.Container{},
	}

	group, ok := document.FindGroup(doc, opts.TemplateName)
	if !ok {
		return tpl
	}

	cw, ch := float64(doc.Width), float64(doc.Height)
	if cw == 0 {
		cw = 1
	}
	if ch == 0 {
		ch = 1
	}

	for i, child := range group.Children {
		name := CleanName(child.Name, opts.Prefix)
		bounds := child.Rect()
		tpl.Containers = append(tpl.Containers, design.Container{
			ID:           ID(i, name),
			Name:         name,
			OriginalName: child.Name,
			Bounds:       bounds,
			Normalized: design.Rect{
				X: bounds.X / cw,
				Y: bounds.Y / ch,
				W: bounds.W / cw,
				H: bounds.H / ch,
			},
		})
	}
	return tpl
}

// CleanName strips prefix from the start of name.
func CleanName(name, prefix string) string {
	return strings.TrimPrefix(name, prefix)
}

// ID builds the container id for the child at index with the cleaned name.
func ID(index int, name string) string {
	return fmt.Sprintf("container-%d-%s", index, whitespace.ReplaceAllString(name, "_"))
}
