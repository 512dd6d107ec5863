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
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/codetran/internal"
	"github.com/valpere/codetran/internal/detector"
	"github.com/valpere/codetran/internal/language"
	"github.com/valpere/codetran/internal/logging"
)

var (
	inputFile  string
	outputFile string
	sourceLang string
	targetLang string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a source file",
	Long: `Translate a local source file with the same checks, preprocessing and
prompt as POST /translate-code.

Supported languages: python, java, javascript.

With --source auto the source language is detected from the file.
Without --output the translation is written to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFile != "" && inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.Close()

		strInp, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		code := string(strInp)

		if sourceLang == "auto" {
			detected, ok := detector.New().Detect(code)
			if !ok || !language.IsSupported(detected) {
				return fmt.Errorf("could not detect a supported source language, use --source")
			}
			sourceLang = detected
			fmt.Fprintf(os.Stderr, "Detected source language: %s\n", sourceLang)
		}

		orch := buildOrchestrator(cfg)
		res, err := orch.Translate(context.Background(), internal.TranslationRequest{
			InputCode:  code,
			SourceLang: sourceLang,
			TargetLang: targetLang,
		})
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}

		if outputFile == "" {
			fmt.Println(res.TranslatedCode)
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(outputFile, []byte(res.TranslatedCode+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}

		fmt.Printf("Successfully translated %s to %s\n", sourceLang, targetLang)
		fmt.Printf("Max tokens: %d, prompt tokens: ~%d, latency: %s\n",
			res.Plan.MaxTokens, res.Plan.PromptTokens, res.Latency.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for translation (stdout if empty)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language (python, java, javascript or auto)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language (required)")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("target")
}
