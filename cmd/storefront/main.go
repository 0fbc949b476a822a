package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/atelierline/storefront/internal"
	"github.com/atelierline/storefront/internal/config"
	"github.com/atelierline/storefront/internal/crypto"
	"github.com/atelierline/storefront/internal/log"
	"github.com/joho/godotenv"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": "v1",
		"store": map[string]any{
			"baseURL":       "https://shop.yourbrand.com",
			"addr":          ":8080",
			"name":          "Your Brand",
			"storage":       "memory",
			"sessionTtl":    "24h",
			"signingKey":    map[string]string{"$env": "SIGNING_KEY"},
			"encryptionKey": map[string]string{"$env": "ENCRYPTION_KEY"},
		},
		"commerce": map[string]any{
			"domain":          "yourbrand.myshopify.com",
			"apiVersion":      "2024-01",
			"storefrontToken": map[string]string{"$env": "STOREFRONT_TOKEN"},
		},
		"customerAuth": map[string]any{
			"clientId":     "your-client-id",
			"authorizeUrl": "https://account.yourbrand.com/oauth/authorize",
			"tokenUrl":     "https://account.yourbrand.com/oauth/token",
			"logoutUrl":    "https://account.yourbrand.com/logout",
			"redirectUri":  "https://shop.yourbrand.com/auth/callback",
			"scopes":       []string{"openid", "email"},
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	keygen := flag.Bool("keygen", false, "print a fresh random secret for SIGNING_KEY/ENCRYPTION_KEY and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *keygen {
		secret, err := crypto.GenerateSecureToken()
		if err != nil {
			log.LogError("Failed to generate secret: %v", err)
			os.Exit(1)
		}
		fmt.Println(secret)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	// Local .env is optional; production supplies real env vars
	if err := godotenv.Load(); err == nil {
		log.LogDebug("Loaded environment from .env")
	}

	if *conf == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n")
		fmt.Fprintf(os.Stderr, "Run with -help for usage information\n")
		os.Exit(1)
	}

	if *validate {
		if _, err := config.Load(*conf); err != nil {
			fmt.Printf("Validating: %s\nResult: FAIL\n  - %v\n", *conf, err)
			os.Exit(1)
		}
		fmt.Printf("Validating: %s\nResult: PASS\n", *conf)
		return
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting storefront", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
	})

	ctx := context.Background()
	storefront, err := internal.NewStorefront(ctx, cfg)
	if err != nil {
		log.LogError("Failed to create storefront: %v", err)
		os.Exit(1)
	}

	if err := storefront.Run(); err != nil {
		log.LogError("Failed to start server: %v", err)
		os.Exit(1)
	}
}
