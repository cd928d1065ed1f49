// File: cmd/bucketeer/main.go
package main

import (
	"os"

	// Import the provider registrations so their init() functions run
	_ "bucketeer/internal/provider"
)

func main() {
	os.Exit(Execute())
}
