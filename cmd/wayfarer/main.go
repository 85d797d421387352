package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/wayfarer/config"
	srv "github.com/mohammad-safakhou/wayfarer/internal/server"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
	"github.com/mohammad-safakhou/wayfarer/internal/trip"
)

func newTelemetry(cfg *config.Config) *telemetry.Telemetry {
	if cfg.Telemetry.Enabled {
		return telemetry.New(prometheus.NewRegistry())
	}
	return telemetry.New(nil)
}

func main() {
	var root = &cobra.Command{Use: "wayfarer"}

	var cfgPath string
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return srv.Run(cfg)
		},
	}

	var req trip.Request
	var plan = &cobra.Command{
		Use:   "plan",
		Short: "Generate a travel plan and print it to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if missing := config.CheckRequired(); len(missing) > 0 {
				return fmt.Errorf("missing required credentials: %v", missing)
			}
			planner, err := srv.BuildPlanner(cfg, newTelemetry(cfg))
			if err != nil {
				return err
			}
			updates, err := planner.GeneratePlan(cmd.Context(), req)
			if err != nil {
				return err
			}
			var report string
			for u := range updates {
				fmt.Fprintln(os.Stderr, u.Status)
				if u.Done {
					report = u.Report
				}
			}
			if report == "" {
				return fmt.Errorf("planning run ended without a report")
			}
			fmt.Println(report)
			return nil
		},
	}
	plan.Flags().StringVar(&req.Origin, "origin", "", "where the trip starts")
	plan.Flags().StringVar(&req.Destination, "destination", "", "where the trip goes")
	plan.Flags().StringVar(&req.Dates, "dates", "", "travel dates, e.g. \"June 10-17, 2025\"")
	plan.Flags().StringVar(&req.Interests, "interests", "", "comma-separated traveler interests")

	root.AddCommand(serve, plan)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
