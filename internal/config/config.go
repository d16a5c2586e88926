package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the externally injected base URLs and paths. Nothing is
// hard-coded: the primary backend, the OAuth broker and each provider
// API all come from the environment.
type Config struct {
	APIURL          string
	AuthServerURL   string
	GithubAPIURL    string
	GoogleAPIURL    string
	CredentialsPath string
}

// Load reads configuration from environment variables, honoring a .env
// file if one exists.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		APIURL:          getEnv("API_URL", "http://localhost:4000"),
		AuthServerURL:   os.Getenv("AUTH_SERVER_URL"),
		GithubAPIURL:    getEnv("GITHUB_API_URL", "https://api.github.com"),
		GoogleAPIURL:    getEnv("GOOGLE_API_URL", "https://www.googleapis.com/oauth2/v2"),
		CredentialsPath: getEnv("CREDENTIALS_PATH", "social.db"),
	}

	// The broker shares the primary backend's origin unless pointed
	// elsewhere.
	if config.AuthServerURL == "" {
		config.AuthServerURL = config.APIURL
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
