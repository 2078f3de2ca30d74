// Package stash talks to the catalog's GraphQL endpoint.
//
// Client implements catalog.Catalog: listing and filtering scenes, phash
// duplicate groups, stash-box scraping, tag and metadata updates, and the
// destructive scene/file removals. Responses are mapped onto catalog types so
// nothing outside this package sees the wire format.
//
// The client does not retry. Callers wrap calls in a retry.Policy and use
// IsRetriable to decide which failures deserve another attempt. Tag and
// stash-box listings are cached for the configured TTL.
package stash
