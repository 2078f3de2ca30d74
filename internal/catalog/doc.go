// Package catalog defines the value objects exchanged with the external
// media-cataloging service and the Catalog interface that wraps it.
//
// Every type here is a snapshot: it is built once per run from a catalog
// response and handed to the decision engines by value. Nothing in this
// package performs I/O; the concrete client lives in services/stash and tests
// use the in-memory fake from testsupport.
package catalog
