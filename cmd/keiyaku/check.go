package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ericksa/keiyakucheck/internal/app"
	"github.com/ericksa/keiyakucheck/internal/config"
	"github.com/ericksa/keiyakucheck/internal/formatter"
	"github.com/ericksa/keiyakucheck/internal/laws"
)

var configPath string

// contextFlags collect the user's legal posture. Unset flags stay empty and
// are normalized to their protective defaults.
type contextFlags struct {
	role         string
	entity       string
	counterparty string
	capital      string
	invoice      string
	expected     string
	party        string
	duration     int
}

func (c *contextFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.role, "role", "", "Your side of the contract (vendor, client)")
	f.StringVar(&c.entity, "entity", "", "Your legal form (individual, one_person_corporation, corporation_with_employees)")
	f.StringVar(&c.counterparty, "counterparty", "", "Counterparty legal form (individual, one_person_corporation, corporation_with_employees, unknown)")
	f.StringVar(&c.capital, "capital", "", "Counterparty capital (over_300m, 10m_to_300m, under_10m, unknown)")
	f.StringVar(&c.invoice, "invoice", "", "Whether you are invoice-registered (yes, no, unknown)")
	f.StringVar(&c.expected, "expected", "", "Contract type you expect (completion, best_efforts, nda, advisory)")
	f.StringVar(&c.party, "party", "", "Whether you sign as 甲 or 乙 (a, b)")
	f.IntVar(&c.duration, "duration", -1, "Contract duration in months (-1 if unknown)")
}

func (c *contextFlags) userContext() laws.UserContext {
	uc := laws.UserContext{
		UserRole:               laws.Role(c.role),
		UserEntityType:         laws.EntityType(c.entity),
		CounterpartyEntityType: laws.EntityType(c.counterparty),
		CounterpartyCapital:    laws.CapitalBracket(c.capital),
		IsInvoiceRegistered:    laws.TriState(c.invoice),
		ExpectedContractType:   laws.ExpectedType(c.expected),
	}
	switch strings.ToLower(c.party) {
	case "a", "甲", string(laws.PartyA):
		uc.ContractRole = laws.PartyA
	case "b", "乙", string(laws.PartyB):
		uc.ContractRole = laws.PartyB
	}
	if c.duration >= 0 {
		d := c.duration
		uc.ContractDurationMonths = &d
	}
	return uc.Normalize()
}

type checkOptions struct {
	ctx    contextFlags
	output string
	noAI   bool
	strict bool
}

func newCheckCmd() *cobra.Command {
	o := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check a contract file (use - for stdin)",
		Long: `Check a plain-text contract against the 28 checkpoints.

Analysis starts as soon as the file is read, under the assumption that you are
an individual vendor; when your flags say otherwise the result is recomputed.

Examples:
  # Check as an individual freelancer
  keiyaku check contract.txt

  # Check as a one-person company facing a large client, 12 month contract
  keiyaku check contract.txt --entity one_person_corporation --capital over_300m --duration 12

  # Rules only, machine-readable
  keiyaku check contract.txt --no-ai -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, o, args[0])
		},
	}

	o.ctx.register(cmd)
	cmd.Flags().StringVarP(&o.output, "output", "o", "human", "Output format (human, json, yaml)")
	cmd.Flags().BoolVar(&o.noAI, "no-ai", false, "Skip the AI analysis and report rule-based findings only")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Exit non-zero when a critical finding is reported")

	return cmd
}

func runCheck(cmd *cobra.Command, o *checkOptions, path string) error {
	switch o.output {
	case "human", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format: %s", o.output)
	}

	text, err := readContract(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if o.noAI {
		cfg.LLM.Enabled = false
	}

	core, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx := cmd.Context()
	spec := core.Coordinator.Begin(ctx, text)

	var s *spinner.Spinner
	if cfg.LLM.Enabled && !spec.Cached && o.output == "human" {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " Analyzing with AI..."
		s.Start()
	}

	report, err := core.Coordinator.Reconcile(ctx, spec.ID, o.ctx.userContext())
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if o.output == "human" {
		printSuccess(cmd.ErrOrStderr(), "Analysis complete")
	}

	if err := formatter.DisplayResults(cmd.OutOrStdout(), report, o.output); err != nil {
		return err
	}

	if o.strict && report.Checkpoints.Summary.Critical > 0 {
		return fmt.Errorf("%d critical findings", report.Checkpoints.Summary.Critical)
	}
	return nil
}

func readContract(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read contract: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("contract %s is empty", path)
	}
	return string(data), nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func printSuccess(w io.Writer, msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "✓ %s\n", msg)
}
