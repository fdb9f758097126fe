package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/safekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-image string      store image file
//	-tries uint        failed sign-ins before lock
//	-timeout duration  credential entry timeout
//	-audit string      audit archive database
//	-log string        log level
//
// The recovery secret and snapshot passphrase are file-only so they do not
// show up in process listings.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-image", "-tries", "-timeout", "-audit", "-log"})

	fs := flag.NewFlagSet("safekeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ImagePath, "image", cfg.ImagePath, "store image file")
	tries := fs.Uint("tries", uint(cfg.MaxTries), "failed sign-ins before the system locks")
	fs.DurationVar(&cfg.InputTimeout, "timeout", cfg.InputTimeout, "credential entry timeout")
	fs.StringVar(&cfg.AuditDBPath, "audit", cfg.AuditDBPath, "audit archive database")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *tries > 255 {
		return fmt.Errorf("tries %d out of range", *tries)
	}
	cfg.MaxTries = uint8(*tries)
	return nil
}
