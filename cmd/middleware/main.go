// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Command middleware runs the RFID middleware service: device
// supervisors, the event pipeline, sinks, and maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/internal/service"
	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	confDir      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "middleware",
		Short:         "RFID middleware: device supervisors, event pipeline, sinks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&confDir, "config-dir", common.ConfigDirectory, "configuration directory")

	rootCmd.AddCommand(newServeCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the middleware service and block until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("middleware " + buildVersion)
		},
	}
}

func runServe() error {
	svc, err := service.Init(confDir)
	if err != nil {
		return fmt.Errorf("service init: %w", err)
	}
	svc.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), common.DriverDisconnectGrace)
	defer cancel()
	svc.Shutdown(ctx)
	return nil
}
