// Package sigspec compiles CUE signature files into the permission
// patterns the checker validates call sites against. It uses the CUE
// SDK's Go API directly, not a CLI subprocess.
package sigspec
