package cmd

import (
	"context"
	"fmt"

	"github.com/cosmicworks/ragchat/internal/app"
)

func runCache(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 || args[0] != "clear" {
		return fmt.Errorf("usage: ragchat cache clear")
	}
	if err := a.Chat.ClearCache(ctx); err != nil {
		return err
	}
	fmt.Println("cache cleared")
	return nil
}
