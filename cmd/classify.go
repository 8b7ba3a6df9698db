package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"creditlens/internal/credit"
	"creditlens/internal/service"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a credit score and risk level into a lending strategy",
	Example: `  creditlens classify --score 72 --risk 中
  creditlens classify --score 90 --risk 低风险 --json`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	flags := classifyCmd.Flags()
	flags.Float64P("score", "s", 0, "credit score (0-100)")
	flags.StringP("risk", "r", "", "risk level (低/中/高/极高, or 低风险/中风险/高风险)")
	flags.Bool("json", false, "print JSON instead of a card")
	_ = classifyCmd.MarkFlagRequired("score")
	_ = classifyCmd.MarkFlagRequired("risk")
}

func runClassify(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	score, _ := flags.GetFloat64("score")
	risk, _ := flags.GetString("risk")
	asJSON, _ := flags.GetBool("json")

	if _, ok := credit.NormalizeRiskLevel(risk); !ok {
		fmt.Fprintln(os.Stderr, hintStyle.Render(fmt.Sprintf("未知风险等级 %q，按最保守策略处理", strings.TrimSpace(risk))))
	}

	result := service.NewCompanyService(nil, nil).Classify(score, risk)
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderClassification(score, risk, result))
	return nil
}
