package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imkarma/clarity/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter clarity.yaml",
	Long:  "Creates clarity.yaml in the current directory with a default oracle setup.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Println("  1. Set the API key env var named in oracle.api_key_env")
	fmt.Println("  2. Run: clarity run owner/name")
	fmt.Println("  3. Or start the server: clarity serve")

	return nil
}
