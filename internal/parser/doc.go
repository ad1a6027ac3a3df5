// Package parser decodes album catalogue documents into canonical records.
//
// A catalogue is an XML document whose root element contains zero or more
// album entries:
//
//	<albums>
//	  <album>
//	    <artist>A1</artist>
//	    <title>T1</title>
//	    <songs>10</songs>
//	    <year>1999</year>
//	    <genre>Rock</genre>
//	  </album>
//	</albums>
//
// Entries are matched by local name at any depth. Each of the five fields is
// taken from the first descendant element with that name, and its value is
// the element's text content, NFC normalized and trimmed.
//
// Parsing fails closed: a document that is not well-formed yields a
// MalformedDocumentError, and the first entry lacking a field yields a
// MissingFieldError. No records are returned in either case.
package parser
