// Package acl is the anti-corruption layer between the remote quote endpoint
// and the domain.
//
// The remote collection speaks in posts ({"id", "title", "body", "userId"}).
// Nothing outside this package sees that shape: [RemoteQuoteClient] decodes
// posts, drops the ones without a title, and hands the rest to the domain as
// [domain.Quote] values carrying the configured sync category.
//
// # Error Handling Strategy
//
// Every way a remote call can go wrong surfaces as a [domain.NetworkError]:
//   - transport failures and exhausted retries
//   - an open circuit breaker ([clients.ErrCircuitOpen])
//   - non-2xx responses, with the status code recorded
//   - bodies that cannot be decoded
//
// Callers match on [domain.ErrNetwork] and never inspect HTTP details.
package acl
