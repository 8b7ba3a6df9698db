package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"creditlens/internal/credit"
	"creditlens/internal/model"
	"creditlens/internal/service"
)

var scoreCmd = &cobra.Command{
	Use:   "score <companies.json>",
	Short: "Score companies from raw financial data",
	Long: `Score reads one company or a JSON array of companies (raw financial data),
computes credit score, rating, limit and risk level, and prints the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	flags := scoreCmd.Flags()
	flags.Bool("json", false, "print scored companies as JSON")
	flags.Bool("high-credit", false, "only show AAA/AA/A/BBB companies")
	flags.Bool("high-risk", false, "only show high risk companies")
}

func runScore(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	asJSON, _ := flags.GetBool("json")
	highCredit, _ := flags.GetBool("high-credit")
	highRisk, _ := flags.GetBool("high-risk")

	data, err := readCompanyData(args[0])
	if err != nil {
		return err
	}

	svc := service.NewCompanyService(nil, nil)
	scored := make([]model.Company, 0, len(data))
	for i, d := range data {
		c, err := svc.Score(d)
		if err != nil {
			return fmt.Errorf("company #%d: %w", i+1, err)
		}
		scored = append(scored, c)
	}

	if highCredit {
		scored = credit.HighCredit(scored)
	}
	if highRisk {
		scored = credit.HighRisk(scored)
	}
	scored = credit.SortByScore(scored, true)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scored)
	}

	for _, c := range scored {
		fmt.Fprintln(out, renderCompany(c))
	}

	st := credit.Summarize(scored)
	fmt.Fprintln(out, hintStyle.Render(fmt.Sprintf("共 %d 家  平均分 %s  高风险 %d  优质 %d",
		st.Total, score1(st.AverageScore), st.HighRiskCount, st.ExcellentCount)))
	return nil
}
