package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Astemirdum/lending-service/pkg/kafka"
	"github.com/Astemirdum/lending-service/pkg/logger"
	"github.com/Astemirdum/lending-service/pkg/postgres"
	"github.com/Astemirdum/lending-service/pkg/redisx"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LENDING_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LENDING_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
}

type Lending struct {
	LoanDays    int    `envconfig:"LENDING_LOAN_DAYS" default:"14"`
	MaxLoanDays int    `envconfig:"LENDING_MAX_LOAN_DAYS" default:"365"`
	TimeZone    string `envconfig:"LENDING_TIME_ZONE" default:"UTC"`

	CheckoutLimit int           `envconfig:"LENDING_CHECKOUT_LIMIT" default:"5"`
	ReturnLimit   int           `envconfig:"LENDING_RETURN_LIMIT" default:"10"`
	LimitWindow   time.Duration `envconfig:"LENDING_LIMIT_WINDOW" default:"5m"`
}

// Location resolves TimeZone; "today" is computed in it.
func (l Lending) Location() (*time.Location, error) {
	return time.LoadLocation(l.TimeZone)
}

type Config struct {
	Server   HTTPServer  `yaml:"server"`
	Database postgres.DB `yaml:"db"`
	Kafka    kafka.Config
	Redis    redisx.Config
	Lending  Lending
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment. Options override what the environment sets.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		var config Config
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		for _, op := range ops {
			op(&config)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg Config) {
	cfg.Database.Password = "***"
	cfg.Redis.Password = "***"
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Fprintln(os.Stderr, string(jscfg))
}
