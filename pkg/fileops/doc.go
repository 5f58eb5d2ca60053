// Package fileops provides path validation helpers for filesystem-backed
// stores.
//
// Validation here is static string analysis only; it never touches the
// filesystem. Callers are expected to pair it with an os.Root-confined
// handle so traversal is also rejected at the syscall level.
package fileops
