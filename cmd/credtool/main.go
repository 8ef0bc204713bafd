// credtool provisions the encrypted credential database the relay reads at
// startup.
//
// Usage:
//
//	credtool -db /server/database/admin.db -keyfile /server/credentials/admin.key
//
// The API key and secret are read from the QUOTE_API_KEY and
// QUOTE_API_SECRET environment variables so they never land in shell
// history or process listings.
package main

import (
	"flag"
	"log/slog"
	"os"

	"quoterelay/internal/creds"
)

func main() {
	dbPath := flag.String("db", "", "path to the credential database")
	keyfile := flag.String("keyfile", "", "path to the hex-encoded AES key file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *dbPath == "" || *keyfile == "" {
		logger.Error("-db and -keyfile are required")
		os.Exit(1)
	}

	keys := creds.Keys{
		APIKey:    os.Getenv("QUOTE_API_KEY"),
		APISecret: os.Getenv("QUOTE_API_SECRET"),
	}
	if keys.APIKey == "" || keys.APISecret == "" {
		logger.Error("QUOTE_API_KEY and QUOTE_API_SECRET must be set")
		os.Exit(1)
	}

	if err := creds.Provision(*dbPath, *keyfile, keys); err != nil {
		logger.Error("provisioning failed", "error", err)
		os.Exit(1)
	}

	logger.Info("credentials provisioned", "db", *dbPath)
}
