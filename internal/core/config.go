package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
	"github.com/hay-kot/criterio"
)

type Log struct {
	Level string `config:"level"`
	File  string `config:"file"`
}

type Store struct {
	// Driver is one of memory, sqlite or mysql.
	Driver string `config:"driver"`
	DSN    string `config:"dsn"`
}

type Broker struct {
	URL   string `config:"url"`
	Topic string `config:"topic"`
}

type Config struct {
	// ID names this node; it must be unique per node when a broker is used.
	ID      string `config:"id"`
	Addr    string `config:"addr"`
	JwksURL string `config:"jwks_url"`
	Log     Log    `config:"log"`
	Store   Store  `config:"store"`
	Broker  Broker `config:"broker"`
}

const (
	DefaultAddr        = ":6750"
	DefaultLogLevel    = "info"
	DefaultStoreDriver = "memory"
	DefaultBrokerTopic = "todoboard-events"
)

// NewConfig reads path and its optional ".local.yml" sibling. Both files may
// be missing, in which case defaults are used. Values support ${ENV_VAR}
// expansion.
func NewConfig(path string) (*Config, error) {
	var appConfig Config

	c := config.New("todoboard").WithOptions(func(opt *config.Options) {
		opt.ParseEnv = true
		opt.DecoderConfig.TagName = "config"
	})

	c.AddDriver(yaml.Driver)

	if path != "" {
		if err := c.LoadExists(path); err != nil {
			return nil, err
		}

		if err := c.LoadExists(localPath(path)); err != nil {
			return nil, err
		}
	}

	if err := c.BindStruct("", &appConfig); err != nil {
		return nil, err
	}

	appConfig.setDefaults()

	if err := appConfig.Validate(); err != nil {
		return nil, err
	}

	return &appConfig, nil
}

func localPath(path string) string {
	for _, ext := range []string{".yml", ".yaml"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext) + ".local" + ext
		}
	}
	return path + ".local"
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}

	if c.Broker.URL != "" && c.Broker.Topic == "" {
		c.Broker.Topic = DefaultBrokerTopic
	}

	if c.ID == "" {
		if host, err := os.Hostname(); err == nil {
			c.ID = host
		} else {
			c.ID = "todoboard"
		}
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("addr", c.Addr, required),
		criterio.Run("log.level", c.Log.Level, oneOf("debug", "info", "warn", "error", "fatal")),
		criterio.Run("store.driver", c.Store.Driver, oneOf("memory", "sqlite", "mysql")),
		criterio.Run("store.dsn", c.Store, dsnRequired),
		criterio.Run("jwks_url", c.JwksURL, httpURL),
		criterio.Run("broker.url", c.Broker.URL, pulsarURL),
	)
}

func required(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("is required")
	}
	return nil
}

func oneOf(values ...string) func(string) error {
	return func(v string) error {
		for _, allowed := range values {
			if v == allowed {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(values, ", "))
	}
}

func dsnRequired(s Store) error {
	if s.Driver != "memory" && s.DSN == "" {
		return fmt.Errorf("is required for the %s driver", s.Driver)
	}
	return nil
}

func httpURL(v string) error {
	if v == "" || strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return nil
	}
	return errors.New("must be an http(s) url")
}

func pulsarURL(v string) error {
	if v == "" || strings.HasPrefix(v, "pulsar://") || strings.HasPrefix(v, "pulsar+ssl://") {
		return nil
	}
	return errors.New("must be a pulsar:// or pulsar+ssl:// url")
}
