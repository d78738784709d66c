// Package dracor implements a thin client for the DraCor document API.
//
// The client covers the subset of the API needed to assemble a local
// corpus system: reading system info, listing corpora, fetching plays
// and their TEI sources, and the authenticated admin operations for
// creating corpora and storing TEI documents.
//
// Request URLs follow the fixed concatenation scheme of the API:
//
//	/corpora
//	/corpora/{corpusname}
//	/corpora/{corpusname}/play/{playname}
//	/corpora/{corpusname}/play/{playname}/tei
//
// Error handling is deliberately simple: every non-2xx response becomes
// a *StatusError carrying the HTTP status code, surfaced to the caller.
// There are no retries or backoff inside the client — a single
// synchronous attempt per call. The polling loop that waits for a
// freshly started local instance lives in internal/instance instead.
package dracor
