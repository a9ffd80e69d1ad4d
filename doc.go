// Package crossprocess provides the entry point of the cross process header
// engine of an APM agent.
//
// It loads the configuration, initializes logging, and creates transactions
// wired to the header codecs, the prometheus metrics, and the net/http
// middlewares. For the protocols themselves, please refer to the
// documentation of the subdirectories:
//
//   - obfuscate: the base64 and XOR codec every header is built on
//   - cat: the legacy cross application tracing headers
//   - synthetics: the synthetics monitor header
//   - outbound and inbound: per request header orchestration
//   - httpbp: net/http middlewares
package crossprocess
