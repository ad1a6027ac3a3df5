// Package importer turns catalogue documents into committed store batches.
//
// An import is all-or-nothing: the document is parsed completely, then every
// record is written in exactly one store transaction. Parser and storage
// errors are returned to the caller unrecovered, and in both cases the store
// is left exactly as it was. Listeners are notified only after the commit.
package importer
