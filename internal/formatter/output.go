package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ericksa/keiyakucheck/internal/checkpoint"
	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/speculative"
)

var typeLabels = map[contracttype.Type]string{
	contracttype.Completion:  "請負",
	contracttype.BestEfforts: "準委任",
	contracttype.Mixed:       "混合（請負と準委任の要素が拮抗）",
	contracttype.Unknown:     "判定不能",
}

// DisplayResults writes the report to w as human, json or yaml.
func DisplayResults(w io.Writer, report *speculative.Report, format string) error {
	switch format {
	case "json":
		return displayJSON(w, report)
	case "yaml":
		return displayYAML(w, report)
	case "human", "":
		displayHuman(w, report)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func displayJSON(w io.Writer, report *speculative.Report) error {
	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func displayYAML(w io.Writer, report *speculative.Report) error {
	output, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	fmt.Fprint(w, string(output))
	return nil
}

func displayHuman(w io.Writer, report *speculative.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "📄 契約書チェック結果")

	cls := report.Classification
	fmt.Fprintf(w, "   契約類型: %s (信頼度: %s)\n", typeLabels[cls.DetectedType], cls.Confidence)
	fmt.Fprintf(w, "   %s\n", cls.Explanation)
	if cls.Recommendation != "" {
		fmt.Fprintf(w, "   %s\n", color.HiBlackString(cls.Recommendation))
	}
	fmt.Fprintln(w)

	if len(report.LawNotes) > 0 {
		white.Fprintln(w, "⚖️  適用される法令:")
		for _, note := range report.LawNotes {
			fmt.Fprintf(w, "   • %s\n", note)
		}
		fmt.Fprintln(w)
	}

	sum := report.Checkpoints.Summary
	white.Fprintf(w, "📊 %s  %s  %s\n\n",
		color.RedString("重大 %d", sum.Critical),
		color.YellowString("注意 %d", sum.Warning),
		color.GreenString("問題なし %d", sum.Clear))

	printGroup(w, report.Checkpoints, checkpoint.Critical, "🔴 重大な問題:")
	printGroup(w, report.Checkpoints, checkpoint.Warning, "🟡 注意が必要な項目:")

	var clear []string
	for _, res := range report.Checkpoints.Results {
		if res.Status == checkpoint.Clear {
			clear = append(clear, res.ID)
		}
	}
	if len(clear) > 0 {
		color.New(color.FgGreen).Fprintf(w, "✅ 問題なし: %s\n\n", strings.Join(clear, ", "))
	}

	printAI(w, report.AI)

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func printGroup(w io.Writer, r checkpoint.Report, status checkpoint.Status, heading string) {
	var items []checkpoint.Result
	for _, res := range r.Results {
		if res.Status == status {
			items = append(items, res)
		}
	}
	if len(items) == 0 {
		return
	}
	getStatusColor(status).Fprintln(w, heading)
	for i, res := range items {
		fmt.Fprintf(w, "   %d. [%s] %s: %s\n", i+1, res.ID, res.Name, res.Title)
		if res.Evidence != "" {
			fmt.Fprintf(w, "      該当箇所: %s\n", color.YellowString(res.Evidence))
		}
		if res.Explanation != "" {
			fmt.Fprintf(w, "      %s\n", res.Explanation)
		}
		if res.SuggestedFix != "" {
			fmt.Fprintf(w, "      修正案: %s\n", color.GreenString(res.SuggestedFix))
		}
		fmt.Fprintf(w, "      根拠: %s\n", color.HiBlackString(res.SourceRule))
		fmt.Fprintln(w)
	}
}

func printAI(w io.Writer, out speculative.AIOutcome) {
	magenta := color.New(color.FgMagenta, color.Bold)
	switch out.Status {
	case speculative.AIOK:
		magenta.Fprintln(w, "🤖 AI分析:")
		fmt.Fprintf(w, "   %s\n", out.Narrative.Summary)
		for _, o := range out.Overrides {
			fmt.Fprintf(w, "   %s %s: AIの判定 %q をルール判定 %q で上書きしました\n",
				color.YellowString("!"), o.CheckpointID, o.ModelStatus, o.EngineStatus)
		}
		fmt.Fprintln(w)
	case speculative.AIFailed:
		magenta.Fprintln(w, "🤖 AI分析:")
		fmt.Fprintf(w, "   %s\n\n", color.RedString("AI分析に失敗しました（ルール判定の結果は有効です）: %s", out.Error))
	}
}

func getStatusColor(status checkpoint.Status) *color.Color {
	switch status {
	case checkpoint.Critical:
		return color.New(color.FgRed, color.Bold)
	case checkpoint.Warning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen)
	}
}
