// Package lighter is a Go client for the Lighter trading venue.
//
// The Client bundles a retrying REST transport, an Ethereum wallet
// signing identity, and a monotonic nonce source. Service groups hang
// off the client: Accounts, Orders, Markets, and Transactions cover the
// REST surface, and Stream opens a WebSocket session for live market
// and account data.
package lighter
