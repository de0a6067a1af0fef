package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"curator/demo/tui"
)

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOrDefault("CURATOR_API_URL", "http://localhost:8080"), "curator API base URL")
	orgID := flag.String("org", envOrDefault("CURATOR_ORG_ID", "demo-org"), "tenant org id")
	flag.Parse()

	program := tea.NewProgram(tui.NewModel(*apiURL, *orgID))
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
