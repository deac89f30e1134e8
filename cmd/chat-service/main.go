// Package main — entrypoint of chat-service (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/sim-ashish/chat-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
