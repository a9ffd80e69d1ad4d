// Package timebp defines the time encodings used by the cross process wire
// formats.
//
// CAT response headers carry durations as float seconds and distributed trace
// payloads carry timestamps as integer milliseconds since EPOCH.
package timebp
