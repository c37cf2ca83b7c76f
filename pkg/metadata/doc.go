// Package metadata defines the declarative form description consumed by the
// compiler. A FormMetadata document lists fields with their type tag, label,
// required flag, select options, optional validation rules and an optional
// visibility condition pointing at another field by id. Documents can be
// authored as JSON or YAML; Parse, LoadFile and LoadFS accept both. Metadata
// is treated as an immutable input: helpers such as Sanitize return copies
// and never mutate the caller's value.
package metadata
