package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/shelfbridge/loansync-service/pkg/kafka"
	"github.com/shelfbridge/loansync-service/pkg/logger"
	"github.com/shelfbridge/loansync-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LOANSYNC_HTTP_HOST"`
	Port         string        `yaml:"port" envconfig:"LOANSYNC_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"30s"`
	WriteTimeout time.Duration
}

// Lending holds the upstream lending service connection settings.
type Lending struct {
	BaseURL       string        `envconfig:"LENDING_BASE_URL" default:"https://sentry-read.svc.overdrive.com"`
	Timeout       time.Duration `envconfig:"LENDING_TIMEOUT" default:"30s"`
	RetryAttempts int           `envconfig:"LENDING_RETRY_ATTEMPTS" default:"2"`
	RPS           float64       `envconfig:"LENDING_RPS" default:"4"`
	UserAgent     string        `envconfig:"LENDING_USER_AGENT" default:"loansync/1.0"`
}

type Sync struct {
	CacheTTL    time.Duration `envconfig:"SYNC_CACHE_TTL" default:"30m"`
	DownloadDir string        `envconfig:"SYNC_DOWNLOAD_DIR" default:"downloads"`
}

// Options mirrors the user-facing plugin preferences. The struct is copied per
// dispatched job, never mutated after load.
type Options struct {
	PreferOpenFormats         bool   `envconfig:"OPT_PREFER_OPEN_FORMATS" default:"true"`
	HideEbooks                bool   `envconfig:"OPT_HIDE_EBOOKS" default:"false"`
	HideMagazines             bool   `envconfig:"OPT_HIDE_MAGAZINES" default:"false"`
	HideBooksAlreadyInLibrary bool   `envconfig:"OPT_HIDE_BOOKS_IN_LIBRARY" default:"false"`
	IncludeNonDownloadable    bool   `envconfig:"OPT_INCLUDE_NONDOWNLOADABLE" default:"false"`
	AlwaysCreateNew           bool   `envconfig:"OPT_ALWAYS_CREATE_NEW" default:"false"`
	MarkUpdatedBooks          bool   `envconfig:"OPT_MARK_UPDATED_BOOKS" default:"true"`
	TagEbooks                 string `envconfig:"OPT_TAG_EBOOKS"`
	TagMagazines              string `envconfig:"OPT_TAG_MAGAZINES"`
	CustColBorrowedDate       string `envconfig:"OPT_CUSTCOL_BORROWED_DATE"`
	CustColDueDate            string `envconfig:"OPT_CUSTCOL_DUE_DATE"`
	CustColLoanType           string `envconfig:"OPT_CUSTCOL_LOAN_TYPE"`
	MaxConcurrentDownloads    int    `envconfig:"OPT_MAX_CONCURRENT_DOWNLOADS" default:"2"`
}

type Config struct {
	Server   HTTPServer        `yaml:"server"`
	Lending  Lending           `yaml:"lending"`
	Sync     Sync              `yaml:"sync"`
	Options  Options           `yaml:"options"`
	Kafka    kafka.Config      `yaml:"kafka"`
	Database postgres.Database `yaml:"db"`
	Log      logger.Log        `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		if config.Options.MaxConcurrentDownloads < 1 {
			config.Options.MaxConcurrentDownloads = 1
		}
		if config.Lending.RetryAttempts < 0 {
			config.Lending.RetryAttempts = 0
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
