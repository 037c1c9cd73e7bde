package main

import (
	"clansite/internal/app"

	"github.com/charmbracelet/log"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal("clansite terminated", "error", err)
	}
}
