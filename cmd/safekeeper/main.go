// Command safekeeper runs the security engine against a store image file and
// serves an interactive console on the terminal.
//
// Usage:
//
//	safekeeper [-c config.yaml] [-image file] [-tries n] [-timeout d] [-audit file] [-log level]
//	safekeeper gen-recovery <device-id>
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/safekeeper/internal/audit"
	"github.com/dmitrijs2005/safekeeper/internal/config"
	"github.com/dmitrijs2005/safekeeper/internal/console"
	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/logging"
	"github.com/dmitrijs2005/safekeeper/internal/recovery"
	"github.com/dmitrijs2005/safekeeper/internal/services"
)

func main() {

	if len(os.Args) > 1 && os.Args[1] == "gen-recovery" {
		if err := genRecovery(os.Args[2:]); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewJSON(os.Stderr, cfg.LogLevel)

	img, err := eeprom.OpenFileImage(cfg.ImagePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := img.Close(); err != nil {
			logger.Error(ctx, "close store image", "error", err)
		}
	}()

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMaxTries(cfg.MaxTries),
	}
	if cfg.RecoverySecret != "" {
		v, err := recovery.NewTOTP(cfg.RecoverySecret)
		if err != nil {
			return err
		}
		opts = append(opts, services.WithRecovery(v))
	} else {
		logger.Warn(ctx, "no recovery secret configured, recovery code disabled")
	}

	sc, err := services.New(ctx, img, opts...)
	if err != nil {
		return err
	}

	var archiver services.Archiver
	if cfg.AuditDBPath != "" {
		repo, err := audit.Open(ctx, cfg.AuditDBPath)
		if err != nil {
			return err
		}
		defer repo.Close()
		archiver = repo
	}

	console.NewApp(cfg, sc, archiver).Run(ctx)
	return nil
}

func genRecovery(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: safekeeper gen-recovery <device-id>")
	}
	secret, url, err := recovery.GenerateSecret(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("secret: %s\nurl:    %s\n", secret, url)
	return nil
}
