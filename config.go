package main

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Person is one of the fixed set of people tickets are bought for.
// An empty Promo means full price.
type Person struct {
	Name  string `yaml:"name"`
	Promo string `yaml:"promo"`
}

type Config struct {
	BotToken string `yaml:"bot_token"`
	AdminID  int64  `yaml:"admin_id"`

	BaseURL   string `yaml:"base_url"`
	StadiumID int    `yaml:"stadium_id"`
	// Session type on the ticket page; 1 is mass skating.
	SessionType int `yaml:"session_type"`

	CustomerName  string `yaml:"customer_name"`
	CustomerPhone string `yaml:"customer_phone"`
	CustomerEmail string `yaml:"customer_email"`

	Persons []Person `yaml:"persons"`

	CardNumber string `yaml:"card_number"`
	CardExpiry string `yaml:"card_expiry"`

	DBPath string `yaml:"db_path"`

	Headless  bool `yaml:"headless"`
	DebugMode bool `yaml:"debug_mode"`

	PageLoadTimeout int `yaml:"page_load_timeout"`
	// Extra seconds after the order form exists, for the site's anti-bot
	// challenge and the async price table to settle.
	FormReadyDelay int `yaml:"form_ready_delay"`
	// Seconds to wait for the promo price recompute after clicking apply.
	PromoRecomputeDelay int `yaml:"promo_recompute_delay"`
	// Idle minutes before a held purchase session is closed automatically.
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://sportvsegda.ru",
		StadiumID:   2, // каток Маяк
		SessionType: 1,

		Persons: []Person{},

		DBPath: "tickets.db",

		Headless:  true,
		DebugMode: false,

		PageLoadTimeout:     30,
		FormReadyDelay:      3,
		PromoRecomputeDelay: 2,
		SessionTTLMinutes:   5,
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
		config.applyEnv()
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	config.applyEnv()

	if config.PageLoadTimeout <= 0 {
		config.PageLoadTimeout = 30
	}
	if config.SessionTTLMinutes <= 0 {
		config.SessionTTLMinutes = 5
	}

	return config, nil
}

// applyEnv lets secrets come from the environment (.env) instead of the
// yaml file, so the config file can be shared without the token or card.
func (c *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.BotToken = v
	}
	if v := os.Getenv("ADMIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.AdminID = id
		}
	}
	if v := os.Getenv("CARD_NUMBER"); v != "" {
		c.CardNumber = v
	}
	if v := os.Getenv("CARD_EXPIRY"); v != "" {
		c.CardExpiry = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
