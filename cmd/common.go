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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/valpere/codetran/internal/config"
	"github.com/valpere/codetran/internal/detector"
	"github.com/valpere/codetran/internal/logging"
	"github.com/valpere/codetran/internal/orchestrator"
	"github.com/valpere/codetran/internal/ratelimit"
	"github.com/valpere/codetran/internal/store"
	"github.com/valpere/codetran/internal/translator"
	"github.com/valpere/codetran/internal/validator"
)

// loadConfig decodes the viper state and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, nil
}

// buildOrchestrator wires the request gate and the OpenAI gateway.
func buildOrchestrator(cfg *config.Config) *orchestrator.Orchestrator {
	gw := translator.NewOpenAIGateway(cfg.OpenAI)
	if err := gw.IsAvailable(context.Background()); err != nil {
		log.WithError(err).Warn("OPENAI_API_KEY is not set; requests will be sent without credentials")
	}
	log.WithFields(log.Fields{
		"base_url": cfg.OpenAI.BaseURL,
		"model":    gw.Model(),
	}).Debug("translation gateway configured")

	gate := validator.New(detector.New())
	return orchestrator.New(gate, gw, orchestrator.OrchestratorConfig{Model: gw.Model()})
}

// buildLimiterStore returns the SQLite store when a database path is
// configured and the in-memory store otherwise. The returned close func is
// never nil.
func buildLimiterStore(cfg ratelimit.Config) (ratelimit.Store, func() error, error) {
	if cfg.DBPath == "" {
		return ratelimit.NewMemoryStore(), func() error { return nil }, nil
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open rate limit database: %w", err)
	}
	return db, db.Close, nil
}
