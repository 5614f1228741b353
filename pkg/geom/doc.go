// Package geom defines the value types shared by the reciprocal-space
// engine: vectors, 3x3 matrices, planes and triangulated polyhedra.
// All types are immutable values; operations return new values.
package geom
