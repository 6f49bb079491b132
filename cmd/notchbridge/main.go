// Package main provides the notchbridge CLI: the MCP tool server, the
// ingestion listener, and the hook/notify client commands.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
