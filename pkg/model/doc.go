// Package model defines the form document: a titled list of steps, each
// holding ordered fields. Field is a tagged union keyed by FieldType; textual
// fields (text, date, textarea) carry optional length and pattern
// constraints while select fields carry options and selection bounds.
//
// Field names are derived once from the label with Slugify and never change
// afterwards, so stored responses keep matching their questions. Names are
// unique within a step. Normalize repairs a decoded document so these
// invariants hold and Check reports the ones that are still violated.
package model
