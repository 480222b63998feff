// Package resource defines the view of the content tree that models are
// built from: a [Resource] is one node with its properties, a [Resolver]
// looks nodes up by absolute path.
//
// Paths are slash separated and absolute ("/content/home/teaser"). The
// helpers in this package ([Clean], [Parent], [Name], [Join]) keep that form.
// Backends live in sub-packages: memory for YAML-defined trees, redistree
// for trees stored in Redis.
package resource
