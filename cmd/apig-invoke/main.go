// Command apig-invoke runs a stored gateway event through the adapter and
// prints the response the function would return. The application is either
// a reverse proxy to an HTTP server or a static file server.
//
//	apig-invoke --upstream http://localhost:8080 event.json
//	apig-invoke --dir ./public < event.json
package main

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

func main() {
	if err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		level.Error(log.NewLogfmtLogger(os.Stderr)).Log("err", err)
		os.Exit(1)
	}
}
