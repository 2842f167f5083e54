package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/reporter"
	"github.com/devrickard/testcascade/internal/infrastructure/watcher"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newExecuteCmd(deps Dependencies) *cobra.Command {
	var (
		baseURL       string
		testsPath     string
		outputPath    string
		postmanPath   string
		globalVars    []string
		globalHeaders []string
		watch         bool
		failFast      bool
	)

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a JSON test suite against a base URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseKeyValues(globalVars)
			if err != nil {
				return err
			}
			headers, err := parseKeyValues(globalHeaders)
			if err != nil {
				return err
			}

			run := func(ctx context.Context, path string) (*models.TestRunResult, error) {
				tests, err := loadTests(path)
				if err != nil {
					return nil, err
				}
				return deps.Coordinator.Execute(ctx, tests, baseURL, headers, vars, models.RunOptions{FailFast: failFast}), nil
			}

			report := func(result *models.TestRunResult) {
				// The console leads with failures; the saved report keeps
				// the canonical scheduling order.
				display := *result
				display.Results = reporter.FailuresFirst(result.Results)
				deps.Reporter.PrintConsole(cmd.OutOrStdout(), &display)
				if outputPath != "" {
					if err := deps.Reporter.SaveJSON(outputPath, result); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "failed to write report: %v\n", err)
					}
				}
				if postmanPath != "" {
					data, err := deps.Postman.Export(result)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "failed to export postman collection: %v\n", err)
					} else if err := os.WriteFile(postmanPath, data, 0644); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "failed to write postman collection: %v\n", err)
					}
				}
			}

			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				w := watcher.NewService()
				if err := w.Watch(ctx, testsPath, run, report); err != nil {
					return err
				}
				<-ctx.Done()
				w.Stop()
				return nil
			}

			result, err := run(cmd.Context(), testsPath)
			if err != nil {
				return err
			}
			report(result)

			if result.Failed() > 0 || result.Errored() > 0 {
				return fmt.Errorf("%d failed, %d errored", result.Failed(), result.Errored())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "base URL the suite runs against (required)")
	cmd.Flags().StringVar(&testsPath, "tests", "", "path to a JSON file containing an array of test cases (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "write the JSON report to this path")
	cmd.Flags().StringVar(&postmanPath, "postman-export", "", "write a Postman collection export to this path")
	cmd.Flags().StringArrayVar(&globalVars, "var", nil, "global variable as name=value, repeatable")
	cmd.Flags().StringArrayVar(&globalHeaders, "header", nil, "global header as name=value, repeatable")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run the suite whenever the tests file changes")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop dispatching further layers once a test in the current layer fails or errors")
	_ = cmd.MarkFlagRequired("base-url")
	_ = cmd.MarkFlagRequired("tests")

	return cmd
}

// loadTests reads a test-definitions file, dispatching on extension:
// ".yaml"/".yml" is accepted as an alternate input format alongside the
// default JSON array.
func loadTests(path string) ([]models.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test definitions file %s: %w", path, err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".yaml" || strings.ToLower(filepath.Ext(path)) == ".yml" {
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse test definitions file %s: %w", path, err)
		}
		// TestCase carries only JSON tags (matching the wire protocol used
		// by the HTTP ingress), so a YAML document is bridged through the
		// same JSON decoder rather than duplicating every tag in YAML too.
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse test definitions file %s: %w", path, err)
		}
		data = converted
	}

	var tests []models.TestCase
	if err := json.Unmarshal(data, &tests); err != nil {
		return nil, fmt.Errorf("failed to parse test definitions file %s: %w", path, err)
	}

	return tests, nil
}

func parseKeyValues(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		result[name] = value
	}
	return result, nil
}
