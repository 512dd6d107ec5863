/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/codetran/internal/store"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Manage persisted rate limit windows",
	Long: `List and reset the per-client rate limit windows kept in SQLite when
the server runs with --rate-db (or ratelimit.db_path).`,
}

var limitsDBPath string

func openLimitsDB() (*store.Store, error) {
	path := limitsDBPath
	if path == "" {
		path = viper.GetString("ratelimit.db_path")
	}
	if path == "" {
		return nil, fmt.Errorf("no rate limit database configured, use --db or ratelimit.db_path")
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var limitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rate limit windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openLimitsDB()
		if err != nil {
			return err
		}
		defer db.Close()

		windows, err := db.ListWindows(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list windows: %w", err)
		}

		if len(windows) == 0 {
			fmt.Println("No rate limit windows.")
			return nil
		}

		now := time.Now()
		limit := viper.GetInt("ratelimit.max")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLIENT\tCOUNT\tLIMITED\tRESETS AT\tSTATE")
		for _, win := range windows {
			state := "active"
			if !now.Before(win.ResetAt) {
				state = "expired"
			}
			fmt.Fprintf(w, "%s\t%d\t%v\t%s\t%s\n",
				win.Key, win.Count, win.Count > limit,
				win.ResetAt.Local().Format("2006-01-02 15:04:05"), state)
		}
		return w.Flush()
	},
}

var limitsResetCmd = &cobra.Command{
	Use:   "reset [client]",
	Short: "Reset one client's window, or all windows",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openLimitsDB()
		if err != nil {
			return err
		}
		defer db.Close()

		key := ""
		if len(args) == 1 {
			key = args[0]
		}
		n, err := db.Reset(context.Background(), key)
		if err != nil {
			return fmt.Errorf("failed to reset: %w", err)
		}
		fmt.Printf("Removed %d rate limit window(s).\n", n)
		return nil
	},
}

var limitsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openLimitsDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.Prune(context.Background(), time.Now())
		if err != nil {
			return fmt.Errorf("failed to prune: %w", err)
		}
		fmt.Printf("Pruned %d expired window(s).\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(limitsCmd)

	limitsCmd.PersistentFlags().StringVar(&limitsDBPath, "db", "", "Rate limit database path (defaults to ratelimit.db_path)")

	limitsCmd.AddCommand(limitsListCmd)
	limitsCmd.AddCommand(limitsResetCmd)
	limitsCmd.AddCommand(limitsPruneCmd)
}
