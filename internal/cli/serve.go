package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imkarma/clarity/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP triage server",
	Long: `Starts the HTTP server. POST /triage runs the pipeline, GET /progress
streams the current run's log, GET /healthz reports liveness.`,
	RunE: runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipe, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	port := servePort
	if port == 0 {
		port = cfg.Server.ListenPort()
	}

	srv := server.New(pipe)
	fmt.Printf("clarity listening on :%d (oracle: %s/%s)\n", port, cfg.Oracle.Provider, cfg.Oracle.Model)
	return srv.ListenAndServe(port)
}
