// Package demographics holds the record submitted for classification, the
// option lists the form offers for each categorical field, and the education
// lookup table that encodes a label into the backend's numeric feature.
//
// Field-level validation belongs to whatever collects the record; this package
// only converts it to the wire shape.
package demographics
