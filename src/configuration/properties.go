package configuration

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type (
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

		Auth     AuthProperties       `envPrefix:"AUTH_"`
		S3       S3Properties         `envPrefix:"S3_"`
		Mongo    MongoProperties      `envPrefix:"MONGO_"`
		Server   HttpServerProperties `envPrefix:"HTTP_"`
		SplitBox SplitBoxProperties   `envPrefix:"SPLITBOX_"`
		Slides   SlidesProperties     `envPrefix:"SLIDES_"`
	}

	AuthProperties struct {
		IssuerURL         string        `env:"ISSUER_URL"`
		Domain            string        `env:"DOMAIN"`
		ID                string        `env:"CLIENT_ID"`
		Secret            string        `env:"CLIENT_SECRET"`
		Redirect          string        `env:"REDIRECT_URL" envDefault:"http://localhost:8088/callback"`
		LogoutRedirect    string        `env:"LOGOUT_URL" envDefault:"http://localhost:8088/"`
		IDTokenCookieName string        `env:"ID_COOKIE" envDefault:"dl_id_token"`
		CookieDomain      string        `env:"COOKIE_DOMAIN" envDefault:"localhost"`
		ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}

	HttpServerProperties struct {
		Name        string        `env:"NAME" envDefault:"dashlab"`
		Port        string        `env:"PORT" envDefault:"8088"`
		ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}

	S3Properties struct {
		// Endpoint overrides the per-region AWS endpoint, e.g. for MinIO.
		Endpoint      string        `env:"ENDPOINT"`
		AccessKey     string        `env:"ACCESS_KEY"`
		SecretKey     string        `env:"SECRET_KEY"`
		UseSSL        bool          `env:"USE_SSL" envDefault:"true"`
		DefaultBucket string        `env:"BUCKET" envDefault:"dashlab-bucket"`
		PresignExpiry time.Duration `env:"PRESIGN_EXPIRY" envDefault:"5m"`
	}

	MongoProperties struct {
		URI         string        `env:"URI" envDefault:"mongodb://localhost:27017/dashlab"`
		Database    string        `env:"DATABASE" envDefault:"dashlab"`
		Collection  string        `env:"COLLECTION" envDefault:"file_metadata"`
		PingTimeout time.Duration `env:"PING_TIMEOUT" envDefault:"5s"`
	}

	SplitBoxProperties struct {
		Host    string        `env:"HOST" envDefault:"http://localhost:9090"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"120s"`
	}

	SlidesProperties struct {
		BaseURL    string   `env:"BASE_URL" envDefault:"https://slides.cloudcommander.dev/"`
		ExtraDecks []string `env:"EXTRA_DECKS" envSeparator:","`
	}
)

func ReadProperties() *Properties {
	config := &Properties{}

	if err := env.Parse(config); err != nil {
		panic(fmt.Errorf("read config error: %w", err))
	}
	return config
}
