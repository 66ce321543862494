// Package validation compiles field definitions into a Validator that checks
// respondent values keyed by field name.
//
// Compilation is cheap and never fails, so callers recompile whenever the
// document changes. Text, textarea and date fields accept a string; single
// selects accept a string that must be a declared option unless AllowCustom
// is set; multi-selects accept a list of strings with optional cardinality
// bounds. An empty value on a non-required field passes every rule, except
// that an explicit MinSelected still applies to an empty selection.
//
// Messages come from a Catalog of pongo2 templates keyed by locale. English
// and Spanish are built in; callers may layer their own YAML on top.
package validation
