package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aipowergrid/aipg-photo-gallery/internal/app"
	"github.com/aipowergrid/aipg-photo-gallery/internal/blob"
	"github.com/aipowergrid/aipg-photo-gallery/internal/config"
)

var (
	platformFlag string
	outputJSON   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "galleryctl",
	Short: "Photo gallery maintenance tool",
	Long: `galleryctl works on the index and blob stores of a photo gallery
without going through the HTTP API.

Stores are selected with the same GALLERY_* environment variables (or .env
file) the API server reads. Do not run mutating commands against stores an
API server currently holds open; badger and bolt take exclusive locks.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&platformFlag, "platform", "", "override GALLERY_PLATFORM (native or browser)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(orphansCmd)
	rootCmd.AddCommand(pruneCmd)
}

// openGallery loads configuration, opens the stores and loads the photo list.
// The returned func releases the stores.
func openGallery(ctx context.Context) (*app.App, func(), error) {
	a, closeFn, err := openStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Start(ctx); err != nil {
		closeFn()
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, fmt.Errorf("load photos: %w (galleryctl prune drops entries whose blob is gone)", err)
		}
		return nil, nil, fmt.Errorf("load photos: %w", err)
	}
	return a, closeFn, nil
}

// openStores is openGallery without the initial load.
func openStores(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if platformFlag != "" {
		cfg.Platform = platformFlag
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}
	return a, closeFn, nil
}
