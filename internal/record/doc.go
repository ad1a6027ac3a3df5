// Package record defines the canonical album record stored by crate.
//
// This package contains type definitions and text normalization only. All
// other internal packages import record; record imports nothing internal.
//
// Key design constraints:
//   - ID is assigned by the store, never by callers (zero means unsaved)
//   - Songs and Year are opaque text, stored exactly as imported
//   - Field text is NFC normalized before it reaches the store
package record
