// Package cli implements the grove command line: running conformance
// scenarios, validating scenario files, compiling signature specs, and
// inspecting recorded traces.
package cli
