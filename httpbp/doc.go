// Package httpbp wires the cross process headers into net/http servers and
// clients.
//
// On the server side, InjectCrossProcess decodes the inbound CAT and
// synthetics headers of a request onto a new transaction, and answers CAT
// callers with the X-NewRelic-App-Data response header.
//
// On the client side, the CrossProcess client middleware adds the outbound
// headers of the transaction found in the request context, and processes
// the response header of the peer.
package httpbp
