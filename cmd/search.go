package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/logger"
	"github.com/spigell/prepscout/internal/pipeline"
	"github.com/spigell/prepscout/internal/resume"
)

const (
	PromptReportBySource      = "Report by source"
	PromptPostingsToFile      = "Dump postings to file"
	PromptAppendToExcludeFile = "Append all postings to exclude file"
	PromptPrepare             = "Generate interview prep for a posting"
	PromptExit                = "Exit"
	PromptBack                = "back"

	defaultCLIUser = "cli"
)

var errExit = errors.New("exit requested")

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one search in the terminal and act on the ranked postings",
	Run: func(cmd *cobra.Command, _ []string) {
		search(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceP("role", "r", nil, "role to search for, repeatable")
	searchCmd.Flags().StringSliceP("location", "l", nil, "location to search in, repeatable")
	searchCmd.Flags().StringSliceP("keyword", "k", nil, "keyword to require, repeatable")
	searchCmd.Flags().String("resume", "", "resume file (PDF or text) to rank postings against")
	searchCmd.Flags().BoolP("auto-approve", "y", false, "print the report and exit without prompts")
	searchCmd.Flags().StringP("exclude-file", "e", "", "file with postings to exclude. Default is unset.")

	viper.BindPFlag("search.roles", searchCmd.Flags().Lookup("role"))
	viper.BindPFlag("search.locations", searchCmd.Flags().Lookup("location"))
	viper.BindPFlag("search.keywords", searchCmd.Flags().Lookup("keyword"))
	viper.BindPFlag("filters.exclude-file", searchCmd.Flags().Lookup("exclude-file"))
}

func search(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the prepscout search", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.Search, "", "  ")
	logger.Debug(fmt.Sprintf("starting with search: \n %s", pretty))

	svc, err := buildServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.Close()

	user := strings.TrimSpace(config.UserID)
	if user == "" {
		user = defaultCLIUser
	}

	if path, _ := cmd.Flags().GetString("resume"); path != "" {
		if err := ingestResume(ctx, svc.resumes, user, path, logger); err != nil {
			logger.Fatal("reading resume", zap.Error(err))
		}
	}

	result, err := svc.pipeline.Run(ctx, pipeline.Input{UserID: user, Request: config.Search})
	if err != nil {
		logger.Fatal("searching postings", zap.Error(err))
	}
	if result.Warning != "" {
		logger.Warn(result.Warning)
	}

	postings := result.Postings
	if postings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no postings found"))
		return
	}

	if approve, _ := cmd.Flags().GetBool("auto-approve"); approve {
		if err := handleAction(ctx, PromptReportBySource, svc, user, config, postings, logger); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	items := []string{PromptReportBySource, PromptPrepare, PromptPostingsToFile}
	if config.Filters.ExcludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}
	prompt := promptui.Select{
		Label: "What next?",
		Items: append(items, PromptExit),
	}

	for {
		logger.Info("current list of postings", zap.Int("count", postings.Len()), zap.Bool("fallback", result.Fallback))

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, svc, user, config, postings, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, svc *services, user string, config *Config, postings *jobs.Postings, logger *zap.Logger) error {
	switch action {
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReportBySource:
		pretty, _ := json.MarshalIndent(postings.ReportBySource(), "", "  ")
		logger.Info(string(pretty), zap.Int("postings count", postings.Len()))
		return nil
	case PromptPostingsToFile:
		filename, err := postings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(config.Filters.ExcludeFile, postings, logger)
	case PromptPrepare:
		return prepare(ctx, svc, user, postings, logger)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func appendToExcludeFile(path string, postings *jobs.Postings, logger *zap.Logger) error {
	excluded, err := jobs.LoadExcluded(path)
	if err != nil {
		return err
	}

	excluded.Append(postings.ToExcluded())

	if err := excluded.ToFile(path); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", path))

	postings.Exclude(jobs.PostingIDField, excluded.IDs())
	return nil
}

// prepare lets the user pick a posting and prints the generated study guide.
func prepare(ctx context.Context, svc *services, user string, postings *jobs.Postings, logger *zap.Logger) error {
	items := make([]string, 0, postings.Len())
	for i, p := range postings.Items {
		items = append(items, fmt.Sprintf("%d %d %s / %s / %s", i+1, p.Score, p.Title, p.Company, p.ApplyURL()))
	}

	postingPrompt := promptui.Select{
		Label: "Choose a posting and press ENTER",
		Items: append(items, PromptBack),
	}

	idx, selected, err := postingPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	posting := postings.Items[idx]
	if posting.InternalID == "" {
		logger.Warn("posting was not stored, cannot prepare", zap.String("external_id", posting.ExternalID))
		return nil
	}

	outcome, err := svc.prep.Generate(ctx, user, posting.InternalID)
	if err != nil {
		logger.Warn("generating prep failed", zap.Error(err))
		return nil
	}

	pretty, _ := json.MarshalIndent(outcome.Guide, "", "  ")
	logger.Info(string(pretty), zap.String("interview_id", outcome.InterviewID))
	return nil
}

func ingestResume(ctx context.Context, svc *resume.Service, user, path string, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	stored, err := svc.Ingest(ctx, resume.Upload{
		UserID:   user,
		FileName: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		return err
	}

	logger.Info("resume stored", zap.String("path", stored.FilePath))
	return nil
}
