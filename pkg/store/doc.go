// Package store is the persistence layer for form documents.
//
// Two keys are kept in a kv.Medium: FormsKey maps id to document and MetaKey
// maps id to model.Meta. Every mutation rewrites both keys together, using
// the medium's batch write when it has one. Within a process the Store
// serialises read-modify-write cycles; across processes the last writer wins.
package store
