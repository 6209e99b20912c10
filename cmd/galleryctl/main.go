// Command galleryctl inspects and edits a photo gallery's stores directly,
// using the same GALLERY_* configuration as the API server.
//
// Usage:
//
//	galleryctl list [--json]
//	galleryctl capture --file <image>
//	galleryctl delete <filepath|name>
//	galleryctl orphans
package main

import (
	"fmt"
	"os"

	"github.com/aipowergrid/aipg-photo-gallery/cmd/galleryctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
