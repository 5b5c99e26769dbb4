package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mapquester/cli"
	"mapquester/config"
	"mapquester/experience"
	"mapquester/models"
	"mapquester/services"
	"mapquester/utils/logger"

	"github.com/chzyer/readline"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Println("Welcome to MapQuester! Use 'help' for the list of commands.")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}
	logger.SetDebug(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// Credentials survive restarts in a local SQLite file
	store, err := services.NewSQLiteCredentialStore(cfg.CredentialsPath)
	if err != nil {
		logger.Fatal("Failed to open credential store: %v", err)
	}
	defer store.Close()

	loop := experience.NewLoop(0)
	var orchestrator *experience.Orchestrator

	session, err := services.NewSession(ctx, store, func() {
		fmt.Println("Your session has expired. Please log in again.")
		if orchestrator != nil {
			loop.Post(orchestrator.SessionChanged)
		}
	})
	if err != nil {
		logger.Fatal("Failed to load session: %v", err)
	}

	api := services.NewAPIClient(services.APIClientConfig{
		BaseURL:    cfg.BackendURL() + cfg.APIPrefix,
		RefreshURL: cfg.RefreshURL(),
		Timeout:    cfg.HTTPTimeout,
		RPS:        cfg.RateLimitRPS,
		Burst:      cfg.RateLimitBurst,
	}, session)
	points := services.NewPointClient(api)

	location, closeLocation := locationSource(cfg, session)
	defer closeLocation()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mapquester> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logger.Fatal("Failed to initialize readline: %v", err)
	}
	defer rl.Close()
	logger.SetOutput(rl.Stderr())

	address := cli.NewAddressBar(initialQuery())

	var c *cli.CLI
	orchestrator = experience.New(experience.Deps{
		Points:       points,
		Interactions: points,
		Session:      session,
		AddressBar:   address,
		Location:     location,
		Dispatcher:   loop,
		OnChange: func() {
			if c != nil {
				c.Changed()
			}
		},
	}, experience.Options{
		PageSize:         cfg.PageSize,
		PendingTTL:       cfg.PendingPointTTL,
		HighlightTTL:     cfg.HighlightTTL,
		NoticeTTL:        cfg.NoticeTTL,
		AutoApplyFilters: cfg.FilterAutoApply,
		InitialView: experience.ViewState{
			Latitude:  cfg.InitialLatitude,
			Longitude: cfg.InitialLongitude,
			Zoom:      cfg.InitialZoom,
		},
		InitialMode: models.MapView,
	})
	c = cli.NewCLI(orchestrator, loop, api, address, rl)

	loopCtx, stopLoop := startLoop(loop)
	defer stopLoop()

	if err := loop.Do(ctx, func() { orchestrator.Mount(loopCtx) }); err != nil {
		logger.Fatal("Failed to start: %v", err)
	}
	defer func() {
		if err := loop.Do(context.Background(), orchestrator.Unmount); err != nil {
			logger.Error("Failed to unmount: %v", err)
		}
	}()

	if !session.SignedIn() {
		fmt.Println("You are not logged in. Use 'login <username>' to sign in.")
	}

	// Scripts named on the command line run before the prompt
	for _, script := range scriptArgs() {
		if err := c.ExecuteScript(ctx, script); err != nil {
			if errors.Is(err, cli.ErrExit) {
				return
			}
			fmt.Printf("Error executing script %s: %v\n", script, err)
		}
	}

	for {
		err := c.Run(ctx)
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Println("Use 'exit' or 'quit' to exit the program.")
				continue
			} else if errors.Is(err, io.EOF) || errors.Is(err, cli.ErrExit) {
				break
			} else if errors.Is(err, experience.ErrLoopStopped) || ctx.Err() != nil {
				break
			}
			fmt.Println("Error:", err)
		}
	}
	fmt.Println("Goodbye!")
}

// startLoop runs loop on its own goroutine. The loop outlives the signal
// context so Unmount still has a loop to run on; stop ends it and waits.
func startLoop(loop *experience.Loop) (context.Context, func()) {
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(loopCtx)
	}()
	return loopCtx, func() {
		cancel()
		<-done
		loop.Wait()
	}
}

// initialQuery is the address bar the session starts from, e.g. "tag=food&poi_id=12".
func initialQuery() string {
	if len(os.Args) > 1 && len(os.Args[1]) > 0 && os.Args[1][0] == '?' {
		return os.Args[1][1:]
	}
	return os.Getenv("MAPQUESTER_QUERY")
}

func scriptArgs() []string {
	args := os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] == '?' {
		args = args[1:]
	}
	return args
}

// locationSource picks the position provider named by LOCATION_SOURCE.
func locationSource(cfg config.Config, session *services.Session) (experience.LocationSource, func()) {
	switch cfg.LocationSource {
	case config.LocationGeoClue:
		return services.NewGeoClueSource(cfg.GeoClueDesktopID), func() {}
	case config.LocationRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return services.NewRedisLocationSource(client, session, 5*time.Second), func() {
			if err := client.Close(); err != nil {
				logger.Error("Error closing redis client: %v", err)
			}
		}
	default:
		return nil, func() {}
	}
}
