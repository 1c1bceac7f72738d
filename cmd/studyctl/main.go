// Command studyctl runs ingestion and study sessions from the terminal
// without the API server or a database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		os.Exit(1)
	}
}
