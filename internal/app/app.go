package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ostapkoval/startrade/internal/clients/telegram"
	"github.com/ostapkoval/startrade/internal/common"
	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/services/ledger"
	"github.com/ostapkoval/startrade/internal/services/pricefeed"
	"github.com/ostapkoval/startrade/internal/storage"
)

// App holds all initialized services and storage. It is the shared core
// used by cmd/startrade-server and the test harnesses.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Ledger      interfaces.LedgerService
	PriceFeed   interfaces.PriceFeed
	Validator   *telegram.Validator
	StartupTime time.Time

	bridgeStop func()
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, the ledger and the price feed.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	// Check provided path, STARTRADE_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("STARTRADE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "startrade.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/startrade.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ledgerService := ledger.NewService(storageManager.PortfolioStore(), logger, config.Ledger.GetStartingBalance())
	feed := pricefeed.NewService(logger, config.PriceFeed)

	var validator *telegram.Validator
	if config.Auth.BotToken != "" {
		validator = telegram.NewValidator(config.Auth.BotToken, telegram.DefaultMaxAge, logger)
	} else if !config.Auth.AllowDemo {
		logger.Warn().Msg("No bot token configured and demo access disabled - authentication will reject all requests")
	}

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Ledger:      ledgerService,
		PriceFeed:   feed,
		Validator:   validator,
		StartupTime: time.Now(),
	}, nil
}

// Close stops background services and releases storage.
func (a *App) Close() {
	a.StopPriceBridge()
	if a.PriceFeed != nil {
		a.PriceFeed.Stop()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
		}
	}
}
