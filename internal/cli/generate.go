package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newGenerateCmd(deps Dependencies) *cobra.Command {
	var (
		promptPath string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate test cases from an LLM prompt",
		Long:  `Sends a prompt to the configured generation backend and extracts a validated test case list from its response.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Generation == nil {
				return fmt.Errorf("no generation backend configured: set llm.api_key (TCS_LLM_API_KEY)")
			}

			prompt, err := os.ReadFile(promptPath)
			if err != nil {
				return fmt.Errorf("failed to read prompt file %s: %w", promptPath, err)
			}

			text, err := deps.Generation.GenerateText(cmd.Context(), string(prompt))
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			tests := deps.Extractor.Extract(text)
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d test case(s)\n", len(tests))

			data, err := json.MarshalIndent(tests, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render test cases: %w", err)
			}

			if outputPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(outputPath, data, 0644)
		},
	}

	cmd.Flags().StringVar(&promptPath, "prompt", "", "path to a file containing the generation prompt (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "write extracted test cases here instead of stdout")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}
