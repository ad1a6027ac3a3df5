// Package harness runs catalogue scenarios against a throwaway store.
//
// A scenario imports documents, optionally reopens the store at another
// schema version, and then asserts on the final state. Every step is
// recorded in a trace that can be compared against a golden file.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: two_albums
//	description: "Two entries get ids 1 and 2"
//	store:
//	  version: 1
//	flow:
//	  - source: albums.xml
//	    import: |
//	      <albums>
//	        <album>...</album>
//	      </albums>
//	    expect:
//	      case: Success
//	      records: 2
//	  - file: documents/albums.xml.gz
//	  - reopen:
//	      version: 2
//	assertions:
//	  - type: record_count
//	    count: 2
//	  - type: record
//	    id: 1
//	    expect: { artist: A1 }
//	  - type: lookup
//	    field: genre
//	    value: Rock
//	    ids: [1]
//
// A flow step has exactly one of import (inline document), file (document
// path relative to the scenario file; .gz and .zst are decompressed) or
// reopen.
//
// # Assertion Types
//
//   - record_count: number of stored records
//   - record: field values of the record with the given id (subset match)
//   - lookup: ids returned by an index lookup, by value or by from/to range
//   - import_count: number of rows in the import log
//   - trace_count: number of flow steps that ended with the given case
//   - verify: the store passes its integrity check
//
// # Deterministic Testing
//
// Batch ids come from testutil.BatchIDGenerator and trace events are
// numbered by testutil.DeterministicClock, so the same scenario always
// produces the same trace. Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
