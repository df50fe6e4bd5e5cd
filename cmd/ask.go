package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cosmicworks/ragchat/internal/app"
)

// runAsk answers a one-off question with no session, retrieval, or cache.
func runAsk(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ragchat ask <question>")
	}

	answer, err := a.Chat.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(answer.Text)
	return nil
}
