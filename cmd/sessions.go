package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cosmicworks/ragchat/internal/app"
)

// listLimit bounds one page of session listing.
const listLimit = 50

func runSessions(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ragchat sessions <list|delete>")
	}

	switch args[0] {
	case "list":
		return listSessions(ctx, a)
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: ragchat sessions delete <id>")
		}
		return deleteSession(ctx, a, args[1])
	default:
		return fmt.Errorf("unknown sessions command %q", args[0])
	}
}

func listSessions(ctx context.Context, a *app.App) error {
	sessions, err := a.Sessions.List(ctx, listLimit, 0)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	for _, s := range sessions {
		name := s.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %-30s  %4d messages  %6d tokens  %s\n",
			s.ID, name, s.MessageCount, s.TokensUsed, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func deleteSession(ctx context.Context, a *app.App, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	if err := a.Sessions.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", id)
	return nil
}
