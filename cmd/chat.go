package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"creditlens/internal/ai"
	"creditlens/internal/chat"
	"creditlens/internal/event"
	"creditlens/internal/prompt"
	"creditlens/internal/service"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the credit analyst about one company",
	Long: `Start an interactive, streaming conversation about a single company.
The company file holds either a scored company or raw financial data.
Provider and model come from the config file or CREDITLENS_AI_* variables.`,
	Example: `  DEEPSEEK_API_KEY=sk-... creditlens chat --company ./data/c001.json`,
	RunE:    runChat,
}

const (
	choiceAsk    = "自由提问"
	choiceSwitch = "切换企业"
	choiceQuit   = "退出"
)

func init() {
	rootCmd.AddCommand(chatCmd)

	flags := chatCmd.Flags()
	flags.String("company", "", "company JSON file")
	_ = chatCmd.MarkFlagRequired("company")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := cfg.ValidateClient(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	companies := service.NewCompanyService(nil, nil)
	path, _ := cmd.Flags().GetString("company")
	subject, err := loadCompany(path, companies)
	if err != nil {
		return err
	}

	bus := event.NewMemoryBus()
	defer bus.Close()

	bridge, err := ai.NewBridge(ctx, &cfg.AI, bus)
	if err != nil {
		return err
	}

	sess := chat.NewSession(bridge, bus,
		chat.WithSubject(subject),
		chat.WithObserver(printUpdate),
	)
	if err := sess.Mount(ctx); err != nil {
		return err
	}
	defer sess.Close()

	fmt.Println(renderCompany(*subject))
	fmt.Println(hintStyle.Render(fmt.Sprintf("模型: %s / %s", bridge.Provider(), cfg.AI.Model)))

	for {
		choice, err := askAction()
		if err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			return err
		}

		switch choice {
		case choiceQuit:
			return nil
		case choiceSwitch:
			if err := switchCompany(ctx, sess, companies); err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
			}
			continue
		case choiceAsk:
			var text string
			if err := survey.AskOne(&survey.Input{Message: "问题:"}, &text); err != nil {
				if errors.Is(err, terminal.InterruptErr) {
					continue
				}
				return err
			}
			fmt.Println(userStyle.Render("你: ") + text)
			report(sess.Send(ctx, text))
		default:
			for _, s := range prompt.Shortcuts() {
				if s.Label == choice {
					fmt.Println(userStyle.Render("你: ") + s.Label)
					report(sess.SendShortcut(ctx, s.Kind))
				}
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func askAction() (string, error) {
	options := make([]string, 0, len(prompt.Shortcuts())+3)
	for _, s := range prompt.Shortcuts() {
		options = append(options, s.Label)
	}
	options = append(options, choiceAsk, choiceSwitch, choiceQuit)

	var choice string
	err := survey.AskOne(&survey.Select{
		Message: "选择操作:",
		Options: options,
		Default: choiceAsk,
	}, &choice)
	return choice, err
}

func switchCompany(ctx context.Context, sess *chat.Session, companies *service.CompanyService) error {
	var path string
	if err := survey.AskOne(&survey.Input{Message: "企业数据文件:"}, &path, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	subject, err := loadCompany(path, companies)
	if err != nil {
		return err
	}
	if err := sess.Reset(ctx, subject); err != nil {
		return err
	}
	fmt.Println(renderCompany(*subject))
	return nil
}

// report 输出同步返回的校验错误；请求失败的提示已由观察者打印
func report(err error) {
	if err == nil {
		return
	}
	var notice *chat.Notice
	if errors.As(err, &notice) {
		log.Debug().Err(notice.Err).Msg("exchange failed")
		return
	}
	fmt.Println(errorStyle.Render(err.Error()))
}

// printUpdate 在会话锁内执行，只做输出
func printUpdate(u chat.Update) {
	switch u.Kind {
	case chat.UpdateAppended:
		fmt.Print(assistantStyle.Render("AI: "))
	case chat.UpdateFragment:
		fmt.Print(u.Fragment)
	case chat.UpdateSettled:
		fmt.Print("\n\n")
	case chat.UpdateFailed:
		fmt.Println()
		if u.Notice != nil {
			fmt.Println(errorStyle.Render(u.Notice.Message))
		}
	case chat.UpdateReset:
		fmt.Println(hintStyle.Render("已切换企业，对话已清空"))
	}
}
