package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"persona-card-service/internal/bank"
	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
	"persona-card-service/internal/prompts"
)

// NewPromptCmd prints the primer, or the prompt for one question.
func NewPromptCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt [QID]",
		Short: "Print the scoring primer, or the prompt for question QID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOptionalConfig(*configPath)
			if err != nil {
				return err
			}
			eng := engine.New(cfg.EngineOptions())
			builder := prompts.New(eng.Registry().Current(), eng.Tuning().MaxEffort)

			if len(args) == 0 {
				text, err := builder.Primer()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			}

			questions, err := bank.NewFileLoader(cfg.Bank.Dir, eng.Tuning().DefaultFatigue).LoadBank(cmd.Context(), cfg.BankID())
			if err != nil {
				return err
			}
			for _, q := range questions {
				if q.ID != args[0] {
					continue
				}
				text, err := builder.Question(q)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			}
			return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, args[0])
		},
	}
}
