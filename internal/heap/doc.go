// Package heap models the object store guarded accesses run against:
// class instances with ordered fields, references held through
// permissions, and the variable environments that bind them. The heap
// knows nothing about permission state; the engine decides whether an
// access may happen, the heap only performs it.
package heap
