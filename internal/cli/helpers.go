package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/imkarma/clarity/internal/archive"
	"github.com/imkarma/clarity/internal/config"
	"github.com/imkarma/clarity/internal/github"
	"github.com/imkarma/clarity/internal/oracle"
	"github.com/imkarma/clarity/internal/pipeline"
)

// loadConfig reads the config file, honoring --config.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config %s not found. Run: clarity init", path)
	}
	return config.Load(path)
}

// buildPipeline wires the oracle, the item source, and the optional
// archive from the config. The returned cleanup closes what needs
// closing and must run after the pipeline is done.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	gateway, err := oracle.NewClient(
		cfg.Oracle.Provider,
		cfg.Oracle.Model,
		cfg.Oracle.APIKeyEnv,
		time.Duration(cfg.Oracle.OracleTimeout())*time.Second,
	)
	if err != nil {
		return nil, nil, err
	}

	token := ""
	if cfg.GitHub.TokenEnv != "" {
		token = os.Getenv(cfg.GitHub.TokenEnv)
	}
	source := github.New(
		token,
		time.Duration(cfg.GitHub.CacheTTL())*time.Second,
		time.Duration(cfg.GitHub.RequestTimeout())*time.Second,
	)

	pipe := pipeline.New(gateway, source, pipeline.NewProgressLog(), cfg.Oracle.Retries())

	cleanup := func() {}
	if cfg.Archive.Enabled {
		store, err := archive.New(cfg.Archive.DBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("open archive: %w", err)
		}
		pipe.SetArchive(store)
		cleanup = func() { store.Close() }
	}

	return pipe, cleanup, nil
}
