// Package models holds the content models the slice command renders.
package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/royteeuwen/slice"
	"github.com/royteeuwen/slice/resource"
)

// Site carries the settings stored on the root of the tree. It is built once
// per request and shared by every model of that request.
type Site struct {
	Name     string `json:"name" mapstructure:"name"`
	Language string `json:"language" mapstructure:"language"`
}

// NewSite reads the root resource. A tree without a root yields an empty Site.
func NewSite(ctx context.Context, r resource.Resolver) (*Site, error) {
	site := &Site{Language: "en"}
	if r == nil {
		return site, nil
	}
	root, err := r.GetResource(ctx, "/")
	if errors.Is(err, resource.ErrNotFound) {
		return site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading site root: %w", err)
	}
	if err := root.Properties().Decode(site); err != nil {
		return nil, fmt.Errorf("decoding site root: %w", err)
	}
	return site, nil
}

// Teaser is a short reference to another page.
type Teaser struct {
	Path  string `json:"path"`
	Title string `json:"title" mapstructure:"title"`
	Text  string `json:"text,omitempty" mapstructure:"text"`
	Link  string `json:"link,omitempty" mapstructure:"link"`
}

// NewTeaser decodes the teaser properties. A relative link is taken relative
// to the teaser itself.
func NewTeaser(ec slice.ExecutionContext, res resource.Resource, stack *slice.ExecutionContextStack) (*Teaser, error) {
	t := &Teaser{Path: ec.Path()}
	if res == nil {
		return t, nil
	}
	if err := res.Properties().Decode(t); err != nil {
		return nil, fmt.Errorf("decoding teaser %s: %w", ec.Path(), err)
	}
	t.Link = stack.AbsolutePath(t.Link)
	return t, nil
}

// Page is a content page with its teasers.
type Page struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Hidden      bool      `json:"hidden,omitempty"`
	Site        *Site     `json:"site"`
	Teasers     []*Teaser `json:"teasers"`
}

// NewPage builds the page and the teasers stored below its "teasers" child.
func NewPage(ec slice.ExecutionContext, res resource.Resource, site *Site, p *slice.ModelProvider) (*Page, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, ec.Path())
	}

	props := res.Properties()
	page := &Page{
		Path:        ec.Path(),
		Title:       props.GetString("title", res.Name()),
		Description: props.GetString("description", ""),
		Tags:        props.GetStrings("tags"),
		Hidden:      props.GetBool("hidden", false),
		Site:        site,
	}

	teasers, err := slice.GetChildModels[*Teaser](p, "teasers")
	if err != nil {
		return nil, err
	}
	page.Teasers = teasers
	return page, nil
}

// Node dumps a resource and everything below it.
type Node struct {
	Path       string         `json:"path"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	Children   []*Node        `json:"children,omitempty"`
}

// NewNode builds the node for the current resource and, recursively, its
// children.
func NewNode(ec slice.ExecutionContext, res resource.Resource, p *slice.ModelProvider) (*Node, error) {
	n := &Node{Path: ec.Path(), Name: resource.Name(ec.Path())}
	if res == nil {
		return n, nil
	}
	n.Properties = res.Properties().Clone()

	children, err := slice.GetChildModelsFromResource[*Node](p, res)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		n.Children = children
	}
	return n, nil
}

// Register adds the models to c.
func Register(c slice.Container) error {
	if err := c.Register(NewSite, slice.WithLifetime(slice.ContextScoped)); err != nil {
		return err
	}
	if err := c.Register(NewTeaser, slice.WithLifetime(slice.Transient)); err != nil {
		return err
	}
	if err := c.Register(NewPage, slice.WithLifetime(slice.Transient)); err != nil {
		return err
	}
	return c.Register(NewNode, slice.WithLifetime(slice.Transient))
}

// Alias makes the models reachable by their short names: site, teaser, page
// and node.
func Alias(m *slice.TypeMapper) {
	m.Alias("site", slice.KeyOf[*Site]())
	m.Alias("teaser", slice.KeyOf[*Teaser]())
	m.Alias("page", slice.KeyOf[*Page]())
	m.Alias("node", slice.KeyOf[*Node]())
}

// Mapper returns a mapper over everything registered in c plus the short
// names of this package.
func Mapper(c slice.Container) *slice.TypeMapper {
	m := slice.MapperFor(c)
	Alias(m)
	return m
}
