// Package qdrantopts provides options for the Qdrant REST client.
package qdrantopts

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/bookrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Search API modes.
const (
	SearchAPIAuto   = "auto"
	SearchAPIQuery  = "query"
	SearchAPISearch = "search"
)

// Options contains Qdrant client configuration.
type Options struct {
	// URL is the Qdrant endpoint, e.g. https://xyz.cloud.qdrant.io:6333.
	URL string `json:"url" mapstructure:"url"`

	// APIKey is sent in the api-key header when set.
	APIKey string `json:"-" mapstructure:"api-key"`

	// Timeout for a single HTTP call.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// SearchAPI selects the similarity search endpoint (auto|query|search).
	// auto picks /points/query on servers >= 1.10 and /points/search otherwise.
	SearchAPI string `json:"search-api" mapstructure:"search-api"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Timeout:   30 * time.Second,
		SearchAPI: SearchAPIAuto,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, options.Join(prefixes...)+"url", o.URL, "Qdrant endpoint URL. Falls back to QDRANT_URL.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"api-key", o.APIKey, "Qdrant API key. Falls back to QDRANT_API_KEY.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "Qdrant request timeout.")
	fs.StringVar(&o.SearchAPI, options.Join(prefixes...)+"search-api", o.SearchAPI, "Similarity search endpoint: auto, query or search.")
}

// Complete fills credentials from the environment when they are not configured.
func (o *Options) Complete() error {
	if o.URL == "" {
		o.URL = os.Getenv("QDRANT_URL")
	}
	if o.APIKey == "" {
		o.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	if o.SearchAPI == "" {
		o.SearchAPI = SearchAPIAuto
	}
	return nil
}

// Validate validates the options. A missing URL is reported at connect time
// as a configuration error so that other backends can run without it.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.URL != "" {
		if u, err := url.Parse(o.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("qdrant url %q is not a valid absolute URL", o.URL))
		}
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("qdrant timeout must be positive"))
	}
	switch o.SearchAPI {
	case SearchAPIAuto, SearchAPIQuery, SearchAPISearch:
	default:
		errs = append(errs, fmt.Errorf("qdrant search-api %q must be auto, query or search", o.SearchAPI))
	}
	return errs
}
