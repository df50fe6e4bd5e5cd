package app

import (
	"context"
	"testing"

	"github.com/cosmicworks/ragchat/internal/config"
	"github.com/cosmicworks/ragchat/internal/testutil"
)

func TestNewFailsFastWithoutDatabase(t *testing.T) {
	cfg := &config.Config{
		ModelName:        config.DefaultModelName,
		EmbedderModel:    config.DefaultEmbedderModel,
		PostgresHost:     "localhost",
		PostgresPort:     1, // nothing listens here
		PostgresUser:     "nobody",
		PostgresPassword: "nothing",
		PostgresDBName:   "nodb",
		PostgresSSLMode:  "disable",
	}

	_, _, err := New(context.Background(), cfg, testutil.NewQuietLogger())
	if err == nil {
		t.Fatal("expected error for unreachable database")
	}
}

func TestCloseRunsCleanupsInReverseOrder(t *testing.T) {
	var order []int
	a := &App{}
	a.cleanup = append(a.cleanup,
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
		func() { order = append(order, 3) },
	)

	a.close()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("cleanup order = %v, want [3 2 1]", order)
	}
	if a.cleanup != nil {
		t.Error("cleanup list must be cleared after close")
	}
}
