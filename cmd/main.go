package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"github.com/queuebot/queuebot/config"
	"github.com/queuebot/queuebot/internal/discord"
	"github.com/queuebot/queuebot/internal/handlers"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
	"github.com/queuebot/queuebot/internal/storage"
	"github.com/queuebot/queuebot/internal/utils"
	logger "github.com/queuebot/queuebot/middleware/log"
	"github.com/queuebot/queuebot/utils/poskey"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Close()

	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	db, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		log.Fatalf("failed to init postgres: %v", err)
	}

	stores := repositories.NewManager(db)

	pool := utils.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, zlog.Logger)
	pool.Start()
	defer pool.Stop()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatalf("failed to create discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	adapter := discord.NewAdapter(session, zlog)

	displaySvc := services.NewDisplayService(adapter, adapter, adapter, zlog)
	scheduler := services.NewDisplayScheduler(displaySvc.Refresh, pool, zlog, cfg.Display.TickPeriod())
	memberSvc := services.NewMemberService(poskey.NewGenerator(), scheduler, adapter, zlog)
	prioritySvc := services.NewPriorityService(adapter, scheduler, zlog)
	queueSvc := services.NewQueueService(scheduler, zlog)
	scheduleSvc := services.NewScheduleService(stores, memberSvc, scheduler, zlog)

	handler := handlers.New(stores, queueSvc, memberSvc, prioritySvc, displaySvc, scheduleSvc, adapter, zlog)
	handler.Register(session)
	handler.RegisterVoice(session)

	if err := session.Open(); err != nil {
		log.Fatalf("failed to open gateway: %v", err)
	}
	defer session.Close()

	if err := handlers.RegisterCommands(session, cfg.Discord.GuildID); err != nil {
		log.Fatalf("failed to register commands: %v", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	if err := scheduleSvc.Start(); err != nil {
		log.Fatalf("failed to start schedules: %v", err)
	}
	defer scheduleSvc.Stop()

	zlog.Info("queuebot is running, press Ctrl+C to exit")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down")
}
