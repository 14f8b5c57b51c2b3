// Package config fills tagged structs from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by configs with rules the env tags cannot express.
// Parse calls Validate after every field was read.
type Validator interface {
	Validate() error
}

// Parse reads a T from environ, or from the process environment when environ
// is nil. Fields are mapped with `env`, `envDefault` and `envSeparator` tags.
//
//	type Config struct {
//	    APIURL  string        `env:"STOREFRONT_API_URL" envDefault:"https://gaarage.ma/api/v2"`
//	    Timeout time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"10s"`
//	}
//	cfg, err := config.Parse[Config](nil)
func Parse[T any](environ map[string]string) (*T, error) {
	cfg := new(T)

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v, ok := any(cfg).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
