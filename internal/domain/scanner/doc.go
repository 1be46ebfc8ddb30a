// Package scanner enumerates candidate executables in the managed apps
// directory.
//
// The walk is recursive and parallel (fastwalk); results are sorted by path
// so the order in which new apps enter the registry is reproducible.
// Matching uses doublestar globs against the root-relative path, and can
// optionally fall back to content sniffing for PE, ELF and Mach-O binaries.
package scanner
