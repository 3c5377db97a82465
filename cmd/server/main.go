package main

import (
	"deal-agent-backend/config"
	"deal-agent-backend/dao"
	"deal-agent-backend/router"
	"deal-agent-backend/service/mq"
	"deal-agent-backend/service/summarization"
	"log/slog"
	"os"
)

func main() {
	if err := config.Load(); err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	if err := dao.Init(); err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}

	if err := mq.Run(); err != nil {
		slog.Error("Failed to start mq", "err", err)
		os.Exit(1)
	}
	defer mq.Shutdown()

	if err := summarization.Init(); err != nil {
		slog.Error("Failed to init summarizer", "err", err)
		os.Exit(1)
	}
	summarization.SummarizerInstance.Run()

	r := router.Register()
	addr := config.Cfg.Server.Host + ":" + config.Cfg.Server.Port
	if err := r.Run(addr); err != nil {
		slog.Error("Failed to run server", "err", err)
		os.Exit(1)
	}
}
