package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gxo-labs/goap/internal/config"
	"github.com/gxo-labs/goap/internal/logger"
	"github.com/gxo-labs/goap/internal/module"
	"github.com/gxo-labs/goap/internal/scenario"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
)

func newValidateCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		file     string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "validate -f <scenario>",
		Short: "Validate a scenario file without planning",
		Long: `Validates the scenario against the schema, checks its structure and
builds every action, so that action parameters are checked too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return usageError("-f/--file is required")
			}
			log := logger.NewLogger(logLevel, "text", stderr)
			log.Infof("Validating scenario: %s", file)

			s, _, err := loadAndBuild(log, file)
			if err != nil {
				return &exitError{code: ExitFailure}
			}
			fmt.Fprintf(stdout, "Scenario '%s' is valid: %d agent(s)\n", s.Name, len(s.Agents))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the scenario YAML file (required)")
	cmd.Flags().StringVar(&logLevel, "log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	return cmd
}

// loadAndBuild loads the scenario at path and builds its agents, logging
// any failure.
func loadAndBuild(log goaplog.Logger, path string) (*config.Scenario, []*scenario.Agent, error) {
	kinds := module.DefaultStaticRegistryGetter
	s, err := config.LoadScenarioFromFile(path, config.WithActionKinds(kinds))
	if err != nil {
		logLoadError(log, err)
		return nil, nil, err
	}
	agents, err := scenario.Build(s, kinds)
	if err != nil {
		logLoadError(log, err)
		return nil, nil, err
	}
	return s, agents, nil
}

func logLoadError(log goaplog.Logger, err error) {
	var validationErr *goaperrors.ValidationError
	var configErr *goaperrors.ConfigError
	if errors.As(err, &validationErr) {
		log.Errorf("Scenario validation failed:\n%s", err.Error())
	} else if errors.As(err, &configErr) {
		log.Errorf("Scenario configuration error:\n%s", configErr.Error())
	} else {
		log.Errorf("Failed to load scenario: %v", err)
	}
}
