package main

import (
	"text2phenotype.com/anneval/api"
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/negation"
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/rmq"
	"text2phenotype.com/anneval/runs"
	"text2phenotype.com/anneval/s3client"
	"text2phenotype.com/anneval/types"
	"text2phenotype.com/anneval/worker"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const submitSender = "anneval-submit"

// corpusFlags select where documents come from.
type corpusFlags struct {
	dir      string
	s3Prefix string
}

func (flags *corpusFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flags.dir, "corpus-dir", "", "directory of MedTator XML files")
	cmd.Flags().StringVar(&flags.s3Prefix, "s3-prefix", "", "S3 prefix of MedTator XML files")
}

func (flags *corpusFlags) source() (corpus.Source, func(), error) {
	switch {
	case flags.dir != "" && flags.s3Prefix != "":
		return nil, nil, errors.New("--corpus-dir and --s3-prefix are exclusive")
	case flags.dir != "":
		return corpus.DirSource{Dir: flags.dir}, func() {}, nil
	case flags.s3Prefix != "":
		client, err := s3client.New()
		if err != nil {
			return nil, nil, err
		}
		return corpus.S3Source{Store: client, Prefix: flags.s3Prefix}, client.Close, nil
	}
	return nil, nil, errors.New("one of --corpus-dir or --s3-prefix is required")
}

func evalCmd(opts *options) *cobra.Command {
	var (
		source    corpusFlags
		output    string
		uploadKey string
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a corpus under every condition and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			runner, err := env.runner(opts)
			if err != nil {
				return err
			}
			src, closeSource, err := source.source()
			if err != nil {
				return err
			}
			defer closeSource()
			docs, err := corpus.LoadAll(src)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return errors.New("corpus is empty")
			}

			report := runner.Run(cmd.Context(), docs)

			out := cmd.OutOrStdout()
			if !quiet {
				if err := report.WriteDocuments(out); err != nil {
					return err
				}
			}
			if err := report.WriteSummary(out); err != nil {
				return err
			}
			return saveReport(report, output, uploadKey)
		},
	}
	source.register(cmd)
	cmd.Flags().StringVar(&output, "output", "", "write the JSON report to this file")
	cmd.Flags().StringVar(&uploadKey, "upload-key", "", "upload the JSON report to this S3 key")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary table")
	return cmd
}

func saveReport(report pipeline.Report, output string, uploadKey string) error {
	if output == "" && uploadKey == "" {
		return nil
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if output != "" {
		if err := os.WriteFile(output, b, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		mainLogger.Info().Str("path", output).Msg("Saved report")
	}
	if uploadKey != "" {
		client, err := s3client.New()
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.Upload(b, uploadKey); err != nil {
			return fmt.Errorf("failed to upload report: %w", err)
		}
		mainLogger.Info().Str("key", uploadKey).Msg("Uploaded report")
	}
	return nil
}

func debugCmd(opts *options) *cobra.Command {
	var s3Key string
	cmd := &cobra.Command{
		Use:   "debug [file.xml]",
		Short: "Show matches, false positives with context and misses for one document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args, s3Key)
			if err != nil {
				return err
			}
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			runner, err := env.runner(opts)
			if err != nil {
				return err
			}
			for _, view := range runner.DebugDocument(cmd.Context(), doc) {
				if err := view.Write(cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "read the document from this S3 key")
	return cmd
}

func loadDocument(args []string, s3Key string) (corpus.Document, error) {
	switch {
	case len(args) == 1 && s3Key == "":
		data, err := os.ReadFile(args[0])
		if err != nil {
			return corpus.Document{}, err
		}
		return corpus.ParseMedTatorXML(args[0], data)
	case len(args) == 0 && s3Key != "":
		client, err := s3client.New()
		if err != nil {
			return corpus.Document{}, err
		}
		defer client.Close()
		return corpus.S3Source{Store: client}.Load(s3Key)
	}
	return corpus.Document{}, errors.New("give either a file or --s3-key")
}

func serveCmd(opts *options) *cobra.Command {
	var negationFilter bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the single document evaluation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			if len(opts.models) == 0 {
				return errors.New("--models needs at least one model")
			}
			base := types.Configuration{Model: opts.models[0], NegationFilter: negationFilter}
			if opts.negationRules != "" {
				rules, err := negation.LoadRules(opts.negationRules)
				if err != nil {
					return err
				}
				base.Negation = rules
			}
			return serveAPI(cmd.Context(), env, base)
		},
	}
	cmd.Flags().BoolVar(&negationFilter, "negation-filter", true, "filter negated spans unless a request turns it off")
	return cmd
}

func serveAPI(ctx context.Context, env *environment, base types.Configuration) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", env.config.RestAPIPort),
		Handler:           api.NewServer(env.classifier, base, env.registry).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	mainLogger.Info().Msgf("REST API on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("REST API stopped with error: %w", err)
	}
	return nil
}

func workerCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Evaluate documents of submitted runs from the RMQ queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			runner, err := env.runner(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if env.config.RestAPIActive {
				configs := runner.Configurations()
				go func() {
					if err := serveAPI(ctx, env, configs[len(configs)-1]); err != nil {
						mainLogger.Err(err).Msg("REST API stopped")
					}
				}()
			}

			mainLogger.Info().Msg("Start evaluation worker")
			for ctx.Err() == nil {
				rmqWorker, err := worker.New(runner)
				if err != nil {
					return fmt.Errorf("could not initialize RMQ worker: %w", err)
				}
				if err = rmqWorker.StartWorker(ctx); err != nil {
					mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
					select {
					case <-ctx.Done():
					case <-time.After(5 * time.Second):
					}
				}
			}
			return nil
		},
	}
}

func submitCmd(opts *options) *cobra.Command {
	var s3Prefix string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a distributed run and queue one evaluation request per document",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := conditions(opts)
			if err != nil {
				return err
			}
			names := make([]string, len(configs))
			for i, cfg := range configs {
				names[i] = cfg.Name
			}

			client, err := s3client.New()
			if err != nil {
				return err
			}
			defer client.Close()
			keys, err := corpus.S3Source{Store: client, Prefix: s3Prefix}.List()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				return fmt.Errorf("no documents under %q", s3Prefix)
			}

			store, err := runs.NewStore()
			if err != nil {
				return err
			}
			defer store.Close()
			publisher, err := rmq.NewPublisher()
			if err != nil {
				return err
			}
			defer publisher.Close()

			runID := uuid.NewString()
			if _, err := store.Create(cmd.Context(), runID, len(keys), names); err != nil {
				return fmt.Errorf("failed to create run: %w", err)
			}
			for _, key := range keys {
				publishing, err := worker.NewMessage(runID, key, submitSender).Publishing()
				if err != nil {
					return err
				}
				if err := publisher.SendEvaluationRequest(publishing); err != nil {
					return fmt.Errorf("failed to queue %s: %w", key, err)
				}
			}
			mainLogger.Info().Str("run_id", runID).Int("documents", len(keys)).Msg("Submitted run")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), runID)
			return err
		},
	}
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", "", "S3 prefix of MedTator XML files")
	_ = cmd.MarkFlagRequired("s3-prefix")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Print the progress and running scores of a submitted run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := runs.NewStore()
			if err != nil {
				return err
			}
			defer store.Close()
			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %s (%d/%d documents)\n\n", run.RunID, run.Status(), len(run.Processed), run.Expected)
			return run.Report().WriteSummary(out)
		},
	}
}
