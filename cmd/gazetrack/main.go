package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// optional .env file for model paths and output directories
	godotenv.Load()

	Execute()
}
