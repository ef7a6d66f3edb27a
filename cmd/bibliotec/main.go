package main

import (
	stdLog "log"

	"github.com/joho/godotenv"

	"github.com/bibliotec/catalog-service/app"
	"github.com/bibliotec/catalog-service/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Println("no .env file loaded: ", err)
	}
	cfg := config.NewConfig()

	app.Run(cfg)
}
