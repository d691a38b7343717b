// Command pdftext extracts text from PDF documents by rasterizing pages
// and transcribing them with a hosted vision model.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
