// Package cat implements the legacy cross application tracing (CAT) headers.
//
// A calling application sends two obfuscated identity headers:
//
//	X-NewRelic-ID:          obfuscate("<account>#<app>")
//	X-NewRelic-Transaction: obfuscate([guid, record_tt, trip_id, path_hash])
//
// and the called application answers with one obfuscated response header:
//
//	X-NewRelic-App-Data: obfuscate([cross_process_id, txn_name, queue_s, response_s, content_length, guid, record_tt])
//
// Both sides only believe an identity whose account is in the trusted
// account list sent by the collector.
//
// The positional arrays tolerate extra trailing elements, so newer peers can
// append fields without breaking older readers.
package cat
