// Package skos maintains a small SKOS-shaped concept graph: schemes,
// concepts, multilingual labels, and broader/narrower/related relations,
// with label search and bounded hierarchy traversal over it. Notes refer
// to concepts only by ID (see package archive's ConceptAssociation) so
// this package never needs to import archive.
package skos
