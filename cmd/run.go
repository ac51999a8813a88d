package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/logger"
	"github.com/salesagent/salesagent/internal/model"
	"github.com/salesagent/salesagent/internal/service"
	"github.com/salesagent/salesagent/internal/store"
)

const (
	PromptSave            = "Save matches to the database"
	PromptExport          = "Export matches to a file"
	PromptReportByProduct = "Report by product"
	PromptQuit            = "Quit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptSave, PromptExport, PromptReportByProduct, PromptQuit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the matching engine against the current tenders",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("yes", "y", false, "save and export results without asking")
	runCmd.Flags().StringP("strategy", "s", "", "matching strategy: rule-based or ai")

	viper.BindPFlag("strategy", runCmd.Flags().Lookup("strategy"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the salesagent", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	svc, deps, cleanup, err := newService(ctx, config, logger)
	defer cleanup()
	if err != nil {
		logger.Fatal("building the matching service", zap.Error(err))
	}

	autoApprove := cmd.Flag("yes").Value.String() == "true"

	result, err := svc.Run(ctx, service.RunOptions{
		Save:   autoApprove,
		Export: autoApprove,
	})
	if err != nil {
		logger.Fatal("matching run failed", zap.Error(err))
	}

	if len(result.Matches) == 0 {
		logger.Info("exiting", zap.String("reason", "no matches found"))
		return
	}

	logger.Info("matching complete",
		zap.String("run_id", result.RunID),
		zap.Int("matches", len(result.Matches)),
	)

	if autoApprove {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, result, deps, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, result *service.Result, deps *service.Deps, logger *zap.Logger) error {
	switch action {
	case PromptSave:
		if deps.Matches == nil {
			logger.Warn("no match store configured", zap.String("hint", "set mongo.uri in the configuration file"))
			return nil
		}
		if err := deps.Matches.SaveMatches(ctx, result.Matches); err != nil {
			return fmt.Errorf("save matches: %w", err)
		}
		logger.Info("matches saved", zap.Int("count", len(result.Matches)))
		return nil
	case PromptExport:
		path, err := store.ExportMatches(deps.OutputDir, result.RunID, result.Matches)
		if err != nil {
			return fmt.Errorf("export matches: %w", err)
		}
		logger.Info("matches exported", zap.String("path", path))
		return nil
	case PromptReportByProduct:
		pretty, _ := json.MarshalIndent(reportByProduct(result.Matches), "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", len(result.Matches)))
		return nil
	case PromptQuit:
		logger.Info("exiting", zap.String("reason", "got quit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func reportByProduct(matches []model.Match) map[string][]string {
	report := make(map[string][]string)
	for _, match := range matches {
		report[match.MatchedProduct] = append(report[match.MatchedProduct],
			fmt.Sprintf("%s (score %.2f)", match.TenderName, match.Score),
		)
	}
	return report
}
