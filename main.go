package main

import (
	"os"

	"a1hub/internal/server"
)

func main() {
	mode := "api"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	switch mode {
	case "events":
		server.EventsInit()
	default:
		server.ApiInit()
	}
}
