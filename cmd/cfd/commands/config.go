package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/cdaclient"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// Common static errors used throughout the commands package.
var (
	ErrUnknownOutputFormat = errors.New("unknown output format")
	ErrUnresolvedLinks     = errors.New("document has unresolved links")
)

// Config represents the CLI configuration.
type Config struct {
	Space       string `json:"space"              yaml:"space"`
	Environment string `json:"environment"        yaml:"environment"`
	Token       string `json:"token,omitempty"    yaml:"token,omitempty"`
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Preview     bool   `json:"preview"            yaml:"preview"`
	Output      string `json:"output,omitempty"   yaml:"output,omitempty"`
	Resolve     string `json:"resolve"            yaml:"resolve"`
	Cache       string `json:"cache"              yaml:"cache"`
	NATSURL     string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	RateLimit   int    `json:"rate_limit"         yaml:"rate_limit"`
	Verbose     bool   `json:"verbose"            yaml:"verbose"`
}

// loadConfig reads the effective configuration from flags, environment and
// the config file.
func loadConfig() *Config {
	return &Config{
		Space:       viper.GetString("space"),
		Environment: viper.GetString("environment"),
		Token:       viper.GetString("token"),
		BaseURL:     viper.GetString("base-url"),
		Preview:     viper.GetBool("preview"),
		Output:      viper.GetString("output"),
		Resolve:     viper.GetString("resolve"),
		Cache:       viper.GetString("cache"),
		NATSURL:     viper.GetString("nats-url"),
		RateLimit:   viper.GetInt("rate-limit"),
		Verbose:     viper.GetBool("verbose"),
	}
}

// Masked returns a copy safe for printing.
func (c *Config) Masked() *Config {
	masked := *c
	if masked.Token != "" {
		masked.Token = constants.MaskedSecret
	}

	return &masked
}

// decodeOptions returns the resolution options selected by the configuration.
func (c *Config) decodeOptions(logger delivery.Logger) ([]delivery.Option, error) {
	policy, err := delivery.ParseResolvePolicy(c.Resolve)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, c.Resolve)
	}

	return []delivery.Option{
		delivery.WithResolvePolicy(policy),
		delivery.WithLogger(logger),
	}, nil
}

// createCache builds the response cache tiers selected by the configuration,
// for example "memory,nats". The returned function releases them.
func (c *Config) createCache() (delivery.Cache, func(), error) {
	tiers, err := delivery.ParseCacheTiers(c.Cache)
	if err != nil {
		return nil, nil, err
	}

	if len(tiers) == 0 {
		return nil, func() {}, nil
	}

	cache, err := delivery.NewCacheFromConfig(&delivery.CacheConfig{
		Tiers:  tiers,
		Memory: &delivery.MemoryCacheConfig{MaxSize: constants.DefaultCacheSize},
		NATS: &delivery.NATSKVConfig{
			URL:    c.NATSURL,
			Bucket: constants.DefaultNATSBucket,
			TTL:    constants.DefaultCacheTTL,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	closer := func() {}
	if releasable, ok := cache.(interface{ Close() }); ok {
		closer = releasable.Close
	}

	return cache, closer, nil
}

// createClient builds a delivery client from the configuration. The returned
// function releases the client's resources.
func createClient(config *Config) (delivery.Client, func(), error) {
	if config.Space == "" {
		return nil, nil, constants.ErrNoSpaceConfigured
	}

	if config.Token == "" {
		return nil, nil, constants.ErrNoTokenConfigured
	}

	logger := newLogger(config.Verbose)

	policy, err := delivery.ParseResolvePolicy(config.Resolve)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, config.Resolve)
	}

	cache, closer, err := config.createCache()
	if err != nil {
		return nil, nil, err
	}

	client, err := cdaclient.New(context.Background(), &delivery.Config{
		SpaceID:           config.Space,
		AccessToken:       config.Token,
		Environment:       config.Environment,
		BaseURL:           config.BaseURL,
		Preview:           config.Preview,
		Debug:             config.Verbose,
		Logger:            logger,
		Cache:             cache,
		RequestsPerSecond: config.RateLimit,
		ResolvePolicy:     policy,
	})
	if err != nil {
		closer()

		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, closer, nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect CLI configuration",
		Long:  "Inspect the effective CLI configuration built from flags, CFD_* environment variables and the config file",
	}

	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration with the access token masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			return showConfig(cmd.OutOrStdout(), outputFormat(config.Output), config.Masked())
		},
	}
}

func showConfig(w io.Writer, format string, config *Config) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(config)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)

		return encoder.Encode(config)
	case constants.FormatDump:
		dumper().Fdump(w, config)

		return nil
	default:
		table := tablewriter.NewWriter(w)
		table.Header("Property", "Value")

		_ = table.Append([]string{"Space", valueOrNA(config.Space)})
		_ = table.Append([]string{"Environment", valueOrNA(config.Environment)})
		_ = table.Append([]string{"Token", valueOrNA(config.Token)})
		_ = table.Append([]string{"Base URL", valueOrNA(config.BaseURL)})
		_ = table.Append([]string{"Preview", strconv.FormatBool(config.Preview)})
		_ = table.Append([]string{"Resolve", valueOrNA(config.Resolve)})
		_ = table.Append([]string{"Cache", valueOrNA(config.Cache)})
		_ = table.Append([]string{"NATS URL", valueOrNA(config.NATSURL)})
		_ = table.Append([]string{"Rate Limit", strconv.Itoa(config.RateLimit)})

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
