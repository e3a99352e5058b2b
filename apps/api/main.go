package main

import (
	"os"
	"strings"
)

// The server can be composed two ways: by hand (the default) or through the
// dig container. Both wire the exact same dependencies; DI_CONTAINER=dig
// switches at boot.
func main() {
	if strings.EqualFold(os.Getenv("DI_CONTAINER"), "dig") {
		startWithDig()
		return
	}
	startManual()
}
