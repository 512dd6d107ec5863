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
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/codetran/internal/logging"
	"github.com/valpere/codetran/internal/ratelimit"
	"github.com/valpere/codetran/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP translation API",
	Long: `Serve POST /translate-code, /healthz and /metrics, and the web UI from
the static directory. Unknown GET paths fall back to index.html.

The OpenAI key is read from OPENAI_API_KEY (or openai.api_key in the config
file). Point --base-url at any OpenAI-compatible endpoint, such as a local
Ollama or OpenRouter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.Close()

		if log.GetLevel() < log.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}

		limiterStore, closeStore, err := buildLimiterStore(cfg.RateLimit)
		if err != nil {
			return err
		}
		defer closeStore()

		limiter := ratelimit.New(limiterStore, cfg.RateLimit)
		srv := server.New(cfg.Server, buildOrchestrator(cfg), limiter)

		log.WithFields(log.Fields{
			"static_dir":  cfg.Server.StaticDir,
			"rate_window": cfg.RateLimit.Window,
			"rate_max":    cfg.RateLimit.Max,
			"rate_store":  storeName(cfg.RateLimit),
		}).Info("starting codetran server")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func storeName(cfg ratelimit.Config) string {
	if cfg.DBPath == "" {
		return "memory"
	}
	return "sqlite:" + cfg.DBPath
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 3001, "Port to listen on (also PORT)")
	serveCmd.Flags().String("static-dir", "web/dist", "Directory with the built web UI")
	serveCmd.Flags().String("rate-db", "", "SQLite database for rate limit windows (memory if empty)")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.static_dir", serveCmd.Flags().Lookup("static-dir"))
	viper.BindPFlag("ratelimit.db_path", serveCmd.Flags().Lookup("rate-db"))
}
