package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/config"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmolog"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmoupnp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	config   string
	logLevel string
	mode     string
	port     int
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:          "pmovolume",
		Short:        "Stepped volume control service",
		Long:         `pmovolume exposes the MainVolume properties (StepCount, CurrentStep, InterfaceRevision) over UPnP and notifies subscribers of every change.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags, true)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.server.Run(ctx)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides the configuration)")
	rootCmd.PersistentFlags().StringVar(&flags.mode, "mode", "", "initial audio mode")
	rootCmd.PersistentFlags().IntVar(&flags.port, "port", 0, "HTTP port (overrides the configuration)")

	describeCmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the device and service descriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags, false)
			if err != nil {
				return err
			}
			return describe(cmd.OutOrStdout(), a)
		},
	}

	rootCmd.AddCommand(describeCmd)
	return rootCmd
}

func setup(flags *rootFlags, serve bool) (*app, error) {
	cfg, err := config.LoadConfig(flags.config)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	level := flags.logLevel
	if level == "" {
		level = cfg.GetLogLevel()
	}
	if err := pmolog.Setup(level, cfg.GetLogJSON()); err != nil {
		return nil, err
	}

	return newApp(cfg, appOptions{mode: flags.mode, port: flags.port, serve: serve})
}

func describe(w io.Writer, a *app) error {
	device, err := pmoupnp.XML(a.device.ToXMLElement)
	if err != nil {
		return fmt.Errorf("error generating device description: %w", err)
	}
	scpd, err := pmoupnp.XML(a.service.SCPDElement)
	if err != nil {
		return fmt.Errorf("error generating service description: %w", err)
	}

	fmt.Fprintf(w, "<!-- %s%s -->\n%s\n", a.server.BaseURL(), a.device.DescriptionURL(), device)
	fmt.Fprintf(w, "<!-- %s%s -->\n%s\n", a.server.BaseURL(), a.service.SCPDURL(), scpd)
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
