package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fieldserve/dispatch/config"
	"github.com/fieldserve/dispatch/core/geo"
	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/infra/logger"
	"github.com/fieldserve/dispatch/infra/redisgeo"
)

var (
	locateLat    float64
	locateLng    float64
	locateRadius float64
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Run a one-off proximity search against the geo index",
	RunE:  locate,
}

func init() {
	locateCmd.Flags().Float64Var(&locateLat, "lat", 0, "center latitude")
	locateCmd.Flags().Float64Var(&locateLng, "lng", 0, "center longitude")
	locateCmd.Flags().Float64Var(&locateRadius, "radius", 10000, "radius in meters")
	rootCmd.AddCommand(locateCmd)
}

func locate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	index, err := redisgeo.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			logger.New("locate").Errorf("redis close: %v", err)
		}
	}()

	search, err := geo.NewSearch(index, logger.New("locate"))
	if err != nil {
		return err
	}
	center := model.Location{Latitude: locateLat, Longitude: locateLng}
	candidates, err := search.FindNearby(ctx, center, locateRadius)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(candidates)
}
