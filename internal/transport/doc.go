// Package transport builds the HTTP clients used to fetch pages.
//
// A Client carries a cookie session across requests, injects configured
// cookies and headers into every request, caps redirects, and can route
// all traffic through a SOCKS5 proxy such as a Tor daemon. EmbeddedTor
// starts a private Tor daemon through tornago whose SOCKS address can be
// handed to WithProxy.
//
// The package is designed to be used with dependency injection: create a
// Client and pass its *http.Client to the fetcher rather than relying on
// http.DefaultClient.
package transport
