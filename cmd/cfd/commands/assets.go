package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// NewAssetsCommand creates the assets command group.
func NewAssetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assets",
		Aliases: []string{"asset"},
		Short:   "Read assets",
		Long:    "List and get media assets",
	}

	cmd.AddCommand(newAssetsListCommand())
	cmd.AddCommand(newAssetsGetCommand())

	return cmd
}

func newAssetsListCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			client, closer, err := createClient(config)
			if err != nil {
				return err
			}
			defer closer()

			col, err := delivery.GetAssets(context.Background(), client, flags.params())
			if err != nil {
				return fmt.Errorf("failed to list assets: %w", err)
			}

			return renderAssets(cmd.OutOrStdout(), outputFormat(config.Output), col)
		},
	}

	flags.register(cmd, false)

	return cmd
}

func newAssetsGetCommand() *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "get ASSET_ID",
		Short: "Get an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return constants.ErrResourceIDRequired
			}

			config := loadConfig()

			client, closer, err := createClient(config)
			if err != nil {
				return err
			}
			defer closer()

			asset, err := delivery.GetAsset(context.Background(), client, id, delivery.NewQueryParams().WithLocale(locale))
			if err != nil {
				return fmt.Errorf("failed to get asset: %w", err)
			}

			return renderAssets(cmd.OutOrStdout(), outputFormat(config.Output), &delivery.Collection[*delivery.Asset]{
				Limit: 1,
				Total: 1,
				Items: []*delivery.Asset{asset},
			})
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "locale code")

	return cmd
}
