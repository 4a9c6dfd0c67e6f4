package main

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable detailed debug logging")
	headless := flag.Bool("headless", true, "Run the browser headless")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if *debug {
		config.DebugMode = true
	}
	if config.DebugMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if !*headless {
		config.Headless = false
	}

	if config.BotToken == "" {
		log.Fatal().Msg("no bot token: set BOT_TOKEN in .env or bot_token in config.yaml")
	}
	if len(config.Persons) == 0 {
		log.Warn().Msg("no persons configured, the purchase menu will be empty")
	}

	store, err := OpenOrderStore(config.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open order store")
	}
	defer store.Close()

	registry := NewSessionRegistry(time.Duration(config.SessionTTLMinutes) * time.Minute)
	purchaser := NewPurchaser(config, registry)
	client := NewSportVsegdaClient(config)

	bot, err := NewBot(config, client, purchaser, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	log.Info().
		Str("base_url", config.BaseURL).
		Int("stadium", config.StadiumID).
		Int("persons", len(config.Persons)).
		Msg("starting")
	bot.Start()
}
