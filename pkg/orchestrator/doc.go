// Package orchestrator runs the pipeline from a stored form to rendered
// output: load the document, apply transformers, resolve the theme, validate
// an optional response and hand everything to a registered renderer.
package orchestrator
