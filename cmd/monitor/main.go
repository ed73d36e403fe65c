package main

import (
	"github.com/fabura/gonka-tools/internal/server"
)

func main() {
	server.Run()
}
