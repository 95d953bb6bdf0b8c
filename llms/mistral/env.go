package mistral

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const (
	EnvApiKey  = "MISTRAL_API_KEY"
	EnvModel   = "MISTRAL_MODEL"
	EnvBaseUrl = "MISTRAL_BASE_URL"
)

// FromEnv creates the adapter from the environment. Variables set in a `.env`
// file in the working directory, or in the given files, are loaded first
// without overriding the existing environment.
//
// Options given explicitly take precedence over the environment.
func FromEnv(envFiles []string, opts ...Opt) (*Mistral, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "could not load environment file")
	}

	var envOpts []Opt

	if key := os.Getenv(EnvApiKey); key != "" {
		envOpts = append(envOpts, WithApiKey(key))
	}
	if model := os.Getenv(EnvModel); model != "" {
		envOpts = append(envOpts, WithModel(model))
	}
	if url := os.Getenv(EnvBaseUrl); url != "" {
		envOpts = append(envOpts, WithBaseUrl(url))
	}

	return New(append(envOpts, opts...)...)
}
