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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/codetran/internal"
	"github.com/valpere/codetran/internal/orchestrator"
	"github.com/valpere/codetran/internal/preprocess"
)

var (
	ppInput  string
	ppSource string
	ppTarget string
	ppPrompt bool
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Show what would be sent to the model for a file",
	Long: `Print the preprocessed code for a local file: kept annotations first,
other comments removed. The token budget and an estimate of prompt tokens
are written to stderr. No network call is made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strInp, err := os.ReadFile(ppInput)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		plan := orchestrator.Prepare(internal.TranslationRequest{
			InputCode:  string(strInp),
			SourceLang: ppSource,
			TargetLang: ppTarget,
		}, viper.GetString("openai.model"))

		if ppPrompt {
			fmt.Printf("[system]\n%s\n\n[user]\n%s\n", plan.System, plan.User)
		} else {
			fmt.Println(plan.Preprocessed)
		}

		fmt.Fprintf(os.Stderr, "Annotations kept: %d\n", len(preprocess.Annotations(string(strInp))))
		fmt.Fprintf(os.Stderr, "Max tokens:       %d\n", plan.MaxTokens)
		fmt.Fprintf(os.Stderr, "Prompt tokens:    ~%d\n", plan.PromptTokens)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preprocessCmd)

	preprocessCmd.Flags().StringVarP(&ppInput, "input", "i", "", "Input file (required)")
	preprocessCmd.Flags().StringVarP(&ppSource, "source", "s", "", "Source language (required)")
	preprocessCmd.Flags().StringVarP(&ppTarget, "target", "t", "python", "Target language used in the prompt")
	preprocessCmd.Flags().BoolVar(&ppPrompt, "prompt", false, "Print the full system and user prompt")

	preprocessCmd.MarkFlagRequired("input")
	preprocessCmd.MarkFlagRequired("source")
}
