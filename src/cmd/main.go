package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfg "dashlab/src/configuration"
	server "dashlab/src/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}
	config := cfg.ReadProperties()
	cfg.SetupLogging(config.LogLevel)
	server.RunServer(config)
}
