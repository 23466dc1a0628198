package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridplan/config"
	"github.com/kilianp07/gridplan/infra/logger"
	"github.com/kilianp07/gridplan/input"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration and model inputs without solving",
	RunE:  validateInputs,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateInputs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	m, portfolio, err := input.Load(cfg.Input.Dir, cfg.Run.Years)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if policy := cfg.Carbon.Policy(); policy != nil {
		if _, ok := m.Commodities[policy.Commodity]; !ok {
			return fmt.Errorf("carbon commodity %s is not in the model", policy.Commodity)
		}
	}
	logg := logger.New("validate")
	logg.Infof("model ok: %d regions, %d commodities, %d processes, %d agents, %d base assets",
		len(m.Regions), len(m.Commodities), len(m.Processes), len(m.Agents), len(portfolio))
	return nil
}
