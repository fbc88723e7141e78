package cli

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"persona-card-service/internal/bank"
	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
)

type aggregateOutput struct {
	Aggregate domain.Aggregate `json:"aggregate"`
	Records   int              `json:"records"`
	Dropped   int              `json:"dropped"`
	Preset    *domain.Preset   `json:"preset,omitempty"`
	Next      *domain.Question `json:"next,omitempty"`
}

// NewAggregateCmd folds a list of records (or an export package) into one card.
func NewAggregateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate FILE",
		Short: "Aggregate a JSON array of records or an exported card",
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
			raws, err := decodeRecordList(data)
			if err != nil {
				return err
			}

			eng := engine.New(cfg.EngineOptions())
			out := aggregateOutput{}
			records := make([]domain.AnswerRecord, 0, len(raws))
			for i, raw := range raws {
				res := eng.ValidateJSON(raw)
				if !res.OK {
					log.Printf("record %d dropped: %v", i, res.Err())
					out.Dropped++
					continue
				}
				records = append(records, *res.Normalized)
			}
			out.Records = len(records)
			out.Aggregate = eng.Aggregate(records)
			if len(records) > 0 {
				out.Preset = engine.NearestPreset(bank.DefaultPresets(), out.Aggregate)
			}

			questions, err := bank.NewFileLoader(cfg.Bank.Dir, eng.Tuning().DefaultFatigue).LoadBank(cmd.Context(), cfg.BankID())
			if err != nil {
				return err
			}
			last := ""
			if len(records) > 0 {
				last = records[len(records)-1].QuestionID
			}
			if next, err := eng.Next(questions, records, last); err == nil {
				out.Next = &next
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

// decodeRecordList accepts a bare array, an export package ({records}) or a
// legacy export ({answers}).
func decodeRecordList(data []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var pkg struct {
		Records []json.RawMessage `json:"records"`
		Answers []json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnknownExportFormat, err)
	}
	switch {
	case pkg.Records != nil:
		return pkg.Records, nil
	case pkg.Answers != nil:
		return pkg.Answers, nil
	}
	return nil, domain.ErrUnknownExportFormat
}
