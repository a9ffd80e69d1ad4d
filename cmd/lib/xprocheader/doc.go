// Package xprocheader implements the logic for the xprocheader binary, a tool
// to encode, decode and probe cross process headers.
//
// To use this library, create a package with main function as:
//
//	func main() {
//	  os.Exit(xprocheader.Run())
//	}
package xprocheader
