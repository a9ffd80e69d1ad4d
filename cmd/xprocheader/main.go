package main

import (
	"os"

	"github.com/reddit/crossprocess.go/cmd/lib/xprocheader"
)

func main() {
	os.Exit(xprocheader.Run())
}
