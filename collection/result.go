package collection

// Result is the answer to an entry listing request.
type Result struct {
	// Entries are the returned resources in sort order.
	Entries []EntryResource

	// DataReturned is the number of matches ignoring the page window.
	DataReturned int

	// DataAvailable is the number of entries in the collection.
	DataAvailable int

	// MoreDataAvailable reports whether matches exist beyond this page:
	// Offset + len(Entries) < DataReturned. It is false for a page past the
	// last match, even though such a page is empty.
	MoreDataAvailable bool

	// Fields are the logical properties present in each entry.
	Fields []string

	// OmittedFields are the properties left out by response_fields, sorted.
	OmittedFields []string

	// Limit and Offset are the effective page window.
	Limit  int
	Offset int
}

// SingleResult is the answer to a single-entry request.
type SingleResult struct {
	// Entry is nil when no entry has the requested id.
	Entry *EntryResource

	DataReturned  int
	DataAvailable int
	Fields        []string
	OmittedFields []string
}
