// Package types defines the error taxonomy shared by every memkit package.
//
// Design goals:
//   - Typed errors with stable categories (out of memory/not found/duplicate/
//     corrupt/misuse/invalid) so callers branch on intent rather than text.
//   - Package-specific sentinels (heap.ErrStaleRef, set.ErrFull, ...) are
//     *Error values, so errors.Is(err, types.ErrMisuse) matches all of them.
//
// This package has no dependencies beyond the standard library.
package types
