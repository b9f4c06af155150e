package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nmibc-risk-mcp/internal/config"
	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/llm"
	"github.com/nmibc-risk-mcp/internal/service"
)

type rootOptions struct {
	jsonOutput bool
	logLevel   string
}

// caseFlags binds the findings questionnaire and schedule options to flags
type caseFlags struct {
	form          domain.FindingsForm
	inductionDate string
	monthMode     string
}

func (f *caseFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.form.TCategory, "t", "", "T category: Ta, T1 or Tis")
	flags.StringVar(&f.form.Grade, "grade", "", "WHO 2004/2016 grade: LG or HG (ignored for Tis)")
	flags.StringVar(&f.form.Status, "status", "primary", "primary or recurrent")
	flags.StringVar(&f.form.Age, "age", "no", "age over 70: >70, <=70, yes or no")
	flags.StringVar(&f.form.TumorCount, "count", "single", "single or multiple")
	flags.StringVar(&f.form.TumorSize, "size", "<3cm", "largest tumour diameter: <3cm or >=3cm")
	flags.StringVar(&f.form.CIS, "cis", "no", "concomitant CIS: yes or no")
	flags.StringVar(&f.form.LVI, "lvi", "no", "lymphovascular invasion: yes or no")
	flags.StringVar(&f.form.Variant, "variant", "no", "variant histology: yes or no")
	flags.StringVar(&f.form.ProstaticUC, "prostatic-cis", "no", "CIS of the prostatic urethra: yes or no")
	flags.StringVar(&f.inductionDate, "induction-date", "", "first BCG induction instillation, YYYY-MM-DD or DD.MM.YYYY")
	flags.StringVar(&f.monthMode, "month-mode", "", "thirty_day (default) or calendar")
	_ = cmd.MarkFlagRequired("t")
}

func (f *caseFlags) input() service.CaseInput {
	form := f.form
	return service.CaseInput{
		Form:          &form,
		InductionDate: f.inductionDate,
		MonthMode:     f.monthMode,
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "nmibc",
		Short:        "EAU 2025 NMIBC risk groups and BCG maintenance schedules",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newClassifyCommand(opts),
		newScheduleCommand(opts),
		newProtocolsCommand(opts),
		newLetterCommand(opts),
	)
	return root
}

// logger writes text logs to stderr so stdout stays parseable
func (o *rootOptions) logger() *logrus.Logger {
	return config.NewLogger(domain.LoggingConfig{Level: o.logLevel, Format: "text", Output: "stderr"})
}

func (o *rootOptions) evaluator() *service.EvaluationService {
	return service.NewDefaultEvaluationService(o.logger())
}

func newClassifyCommand(opts *rootOptions) *cobra.Command {
	var flags caseFlags

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Assign the EAU risk group and print the recommended protocol",
		Example: `  nmibc classify --t T1 --grade HG --size ">=3cm" --induction-date 2025-03-01
  nmibc classify --t Ta --grade LG --status Nawrotowy --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := opts.evaluator().EvaluateCase(flags.input())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	var input service.ScheduleInput

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print BCG maintenance dates for a risk group or explicit month offsets",
		Example: `  nmibc schedule --induction-date 2025-03-01 --category high
  nmibc schedule --induction-date 31.01.2025 --offsets 1,2 --month-mode calendar`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := opts.evaluator().BuildSchedule(input)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			if len(result.Schedule) == 0 {
				_, err = fmt.Fprintln(out, "No maintenance cycles")
				return err
			}
			for _, entry := range result.Schedule {
				if _, err := fmt.Fprintf(out, "month %2d: %s\n", entry.MonthOffset, entry.FormattedDate()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input.InductionDate, "induction-date", "", "first induction instillation, YYYY-MM-DD or DD.MM.YYYY")
	cmd.Flags().StringVar(&input.Category, "category", "", "risk group: low, intermediate, high or veryHigh")
	cmd.Flags().IntSliceVar(&input.OffsetsMonths, "offsets", nil, "explicit month offsets, e.g. 3,6,12")
	cmd.Flags().StringVar(&input.MonthMode, "month-mode", "", "thirty_day (default) or calendar")
	_ = cmd.MarkFlagRequired("induction-date")
	cmd.MarkFlagsMutuallyExclusive("category", "offsets")
	cmd.MarkFlagsOneRequired("category", "offsets")
	return cmd
}

func newProtocolsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "protocols [category]",
		Short: "Show the guideline protocol for one risk group, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evaluator := opts.evaluator()

			var protocols []domain.ProtocolRecord
			if len(args) == 1 {
				category, err := domain.ParseRiskCategory(args[0])
				if err != nil {
					return err
				}
				protocol, err := evaluator.Protocol(category)
				if err != nil {
					return err
				}
				protocols = append(protocols, protocol)
			} else {
				all, err := evaluator.Protocols()
				if err != nil {
					return err
				}
				protocols = all
			}

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), protocols)
			}
			out := cmd.OutOrStdout()
			for i, protocol := range protocols {
				if i > 0 {
					fmt.Fprintln(out)
				}
				printProtocol(out, protocol)
			}
			return nil
		},
	}
}

func newLetterCommand(opts *rootOptions) *cobra.Command {
	var flags caseFlags

	cmd := &cobra.Command{
		Use:   "letter",
		Short: "Draft a patient letter with the configured text generation provider",
		Long: `Draft a patient letter for the evaluated case. The provider is read from
NMIBC_LLM_PROVIDER, NMIBC_LLM_MODEL and NMIBC_LLM_API_KEY. When no provider is
configured the evaluation summary is printed instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := opts.logger()
			cfg := config.LoadLiteConfig()

			generator, err := llm.NewTextGenerator(cfg.AssistantConfig(), logger, nil)
			if err != nil {
				return err
			}
			evaluator := service.NewDefaultEvaluationService(logger)
			assistant := service.NewAssistantService(logger, generator, cfg.Language)

			result, err := evaluator.EvaluateCase(flags.input())
			if err != nil {
				return err
			}
			reply := assistant.DraftLetter(cmd.Context(), result.Evaluation, result.Schedule)

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"case": result, "assistant": reply})
			}
			out := cmd.OutOrStdout()
			if !reply.Available {
				fmt.Fprintf(out, "Assistant unavailable (%s). Evaluation:\n", reply.Error)
				_, err = fmt.Fprintln(out, result.Summary)
				return err
			}
			_, err = fmt.Fprintln(out, reply.Text)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func printProtocol(out io.Writer, protocol domain.ProtocolRecord) {
	fmt.Fprintf(out, "%s (%s)\n", protocol.DisplayLabel, protocol.Category)
	fmt.Fprintf(out, "  Recommendation: %s\n", protocol.ShortRecommendation)
	fmt.Fprintf(out, "  Treatment: %s\n", protocol.TreatmentText)
	if protocol.InductionDescription != nil {
		fmt.Fprintf(out, "  Induction: %s\n", *protocol.InductionDescription)
	}
	if protocol.HasMaintenanceSchedule() {
		offsets := make([]string, len(protocol.MaintenanceOffsetsMonths))
		for i, offset := range protocol.MaintenanceOffsetsMonths {
			offsets[i] = fmt.Sprint(offset)
		}
		fmt.Fprintf(out, "  Maintenance months: %s\n", strings.Join(offsets, ", "))
	}
	fmt.Fprintf(out, "  Follow-up: %s\n", protocol.FollowUpText)
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
