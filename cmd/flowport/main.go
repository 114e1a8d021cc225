// Command flowport converts BPMN 2.0 process definitions into sequential
// workflow documents and reports how well each construct survived the trip.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/internal/logging"
	"github.com/flowport/flowport/internal/ruletable"
	"github.com/flowport/flowport/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "flowport",
	Short: "BPMN to sequential workflow migration",
	Long: `Flowport parses BPMN 2.0 XML, classifies every element, and transforms the
process graph into a sequential workflow document: conditional branches become
visibility rules, parallel branches become groups with synthetic join steps,
and timer boundaries become step deadlines. Every run produces a migration
report grading each mapping decision by confidence.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FLOWPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db-path", "", "run archive database path (archiving disabled if empty)")
	rootCmd.PersistentFlags().String("rules", "", "capability rule table YAML (default: embedded table)")
	rootCmd.PersistentFlags().Int("review-threshold", 0, "confidence below which decisions need review (default: 60)")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("db-path", rootCmd.PersistentFlags().Lookup("db-path"))
	_ = viper.BindPFlag("rules", rootCmd.PersistentFlags().Lookup("rules"))
	_ = viper.BindPFlag("review-threshold", rootCmd.PersistentFlags().Lookup("review-threshold"))
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(diagramCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
}

// newLogger builds the CLI logger with correlation ids attached.
func newLogger() *slog.Logger {
	var level slog.Level
	switch viper.GetString("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(logging.NewCorrelationHandler(inner))
}

// newPipeline builds the migration pipeline from persistent flags.
func newPipeline(logger *slog.Logger) (*engine.Pipeline, error) {
	opts := []engine.Option{engine.WithLogger(logger)}
	if path := viper.GetString("rules"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rule table: %w", err)
		}
		table, err := ruletable.LoadBytes(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithRuleTable(table))
	}
	if threshold := viper.GetInt("review-threshold"); threshold > 0 {
		opts = append(opts, engine.WithReviewThreshold(threshold))
	}
	return engine.New(opts...)
}

// openStore opens the run archive, or returns nil when --db-path is unset.
func openStore(cmd *cobra.Command) (store.Store, error) {
	path := viper.GetString("db-path")
	if path == "" {
		return nil, nil
	}
	s, err := store.NewLibSQLStore("file:" + path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(cmd.Context()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
