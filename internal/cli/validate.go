package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"persona-card-service/internal/engine"
)

type validateOutput struct {
	engine.Result
	Hash string `json:"hash,omitempty"`
}

// NewValidateCmd validates one model response and prints the normalized record.
func NewValidateCmd(configPath *string) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate and migrate one scored answer (FILE or - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOptionalConfig(*configPath)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			res := engine.New(cfg.EngineOptions()).ValidateJSON(data)
			out := validateOutput{Result: res}
			if res.OK {
				out.Hash = engine.DedupHash(res.Normalized.ScoredAnswer, target)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			return res.Err()
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "scoring target the dedup hash is scoped to (default draft)")
	return cmd
}
