package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ericksa/keiyakucheck/internal/app"
	"github.com/ericksa/keiyakucheck/internal/checkpoint"
	"github.com/ericksa/keiyakucheck/internal/laws"
	"github.com/ericksa/keiyakucheck/pkg/mcp"
)

func newLawsCmd() *cobra.Command {
	c := &contextFlags{}
	cmd := &cobra.Command{
		Use:   "laws",
		Short: "Show which statutes apply to your situation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.userContext()
			l := laws.Resolve(uc)
			w := cmd.OutOrStdout()

			cyan := color.New(color.FgCyan, color.Bold)
			cyan.Fprintln(w, "⚖️  適用される法令")
			fmt.Fprintf(w, "   立場: %s / %s, 相手方: %s (資本金 %s)\n",
				uc.UserRole, uc.UserEntityType, uc.CounterpartyEntityType, uc.CounterpartyCapital)
			fmt.Fprintln(w)
			for _, row := range []struct {
				name string
				on   bool
			}{
				{"フリーランス保護法（取引条件明示）", l.FreelanceProtectionBasic},
				{"フリーランス保護法（支払期日・禁止行為等）", l.FreelanceProtectionStrict},
				{"下請法", l.SubcontractActApplies},
				{"民法", l.CivilCodeApplies},
				{"著作権法", l.CopyrightLawRelevant},
			} {
				mark := color.HiBlackString("－")
				if row.on {
					mark = color.GreenString("✓")
				}
				fmt.Fprintf(w, "   %s %s\n", mark, row.name)
			}
			if laws.MidTermNoticeRequired(uc) {
				fmt.Fprintf(w, "\n   %s\n", color.YellowString("中途解除には30日前までの予告が必要です。"))
			}
			notes := laws.Explain(l)
			if len(notes) > 0 {
				fmt.Fprintln(w)
				for _, note := range notes {
					fmt.Fprintf(w, "   • %s\n", note)
				}
			}
			return nil
		},
	}
	c.register(cmd)
	return cmd
}

func newCatalogueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogue",
		Short: "List the 28 checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tNAME\tSOURCE")
			for _, cp := range checkpoint.Catalogue() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cp.ID, cp.Category, cp.Name, cp.SourceRule)
			}
			return tw.Flush()
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the contract tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			core, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer core.Close()
			return mcp.NewHandler(core.Coordinator, core.Auditor).RunStdio(cmd.Context())
		},
	}
}
