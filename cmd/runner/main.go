package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"mission-runner/internal/cli"
)

func main() {
	// .env is optional; RUNNER_* variables may come from the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cli.Execute()
}
