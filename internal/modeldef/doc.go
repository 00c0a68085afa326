// Package modeldef holds unresolved domain definitions and resolves them
// into a model.Model.
//
// Definitions are what a mapping layer (attributes, CUE files, test
// fixtures) declares: types, their base type and interfaces, fields and
// index definitions. Resolve derives everything the index builder consumes
// as given: the type arena and its edges, hierarchies with discriminators,
// flattened field lists with inherited copies, reference and structure
// expansion, columns, and interface field maps.
package modeldef
