// Package main provides the extractctl admin CLI for tenant usage and
// limit management.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/docmill/extraction-engine/internal/config"
	"github.com/docmill/extraction-engine/internal/meter"
	"github.com/docmill/extraction-engine/internal/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "extractctl",
	Short: "Admin CLI for the extraction engine",
	Long: `extractctl inspects and manages tenant usage for the extraction
engine: current page usage, usage limits, and recorded tasks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	tasksCmd.Flags().Int("page", 1, "page number")
	tasksCmd.Flags().Int("limit", 10, "tasks per page")
	rootCmd.AddCommand(usageCmd, setLimitCmd, tasksCmd)
}

func openRepositories() (*storage.Repositories, func(), error) {
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	return storage.NewRepositories(db), func() { db.Close() }, nil
}

var usageCmd = &cobra.Command{
	Use:   "usage <api-key>",
	Short: "Show a tenant's page usage and limit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, closeDB, err := openRepositories()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := context.Background()
		apiKey := args[0]

		usage, err := repos.Usage.TotalUsage(ctx, apiKey, storage.UsageTypePages)
		if err != nil {
			return fmt.Errorf("read usage: %w", err)
		}
		limit, err := repos.Usage.Limit(ctx, apiKey, storage.UsageTypePages)
		if err != nil {
			return fmt.Errorf("read limit: %w", err)
		}

		fmt.Printf("api key:  %s\n", apiKey)
		fmt.Printf("usage:    %d pages\n", usage)
		if limit == meter.Unlimited {
			fmt.Println("limit:    unlimited")
		} else {
			fmt.Printf("limit:    %d pages\n", limit)
			fmt.Printf("remaining: %d pages\n", limit-usage)
		}
		return nil
	},
}

var setLimitCmd = &cobra.Command{
	Use:   "set-limit <api-key> <pages>",
	Short: "Set a tenant's page usage limit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || limit < 0 {
			return fmt.Errorf("limit must be a non-negative integer: %q", args[1])
		}

		repos, closeDB, err := openRepositories()
		if err != nil {
			return err
		}
		defer closeDB()

		apiKey := args[0]
		if err := repos.Usage.SetLimit(context.Background(), apiKey, storage.UsageTypePages, limit); err != nil {
			return fmt.Errorf("set limit: %w", err)
		}

		fmt.Printf("limit for %s set to %d pages\n", apiKey, limit)
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks <api-key>",
	Short: "List a tenant's tasks, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")

		repos, closeDB, err := openRepositories()
		if err != nil {
			return err
		}
		defer closeDB()

		tasks, err := repos.Tasks.ListByAPIKey(context.Background(), args[0], page, limit)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
