package pages

import (
	"fmt"
	"strings"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/debuger/ui"
	"github.com/ghiac/modelrelay/debuger/ui/components"
	"github.com/ghiac/modelrelay/model"
)

// RenderDashboard generates the dashboard HTML page
func RenderDashboard(sessions []*model.Session, cfg *config.Config) string {
	totalMessages := 0
	totalTokens := 0
	totalMemories := 0
	users := make(map[string]bool)
	for _, s := range sessions {
		totalMessages += len(s.History)
		totalTokens += s.TotalTokensUsed
		totalMemories += len(s.MemoryZone)
		users[s.UserID] = true
	}

	html := ui.Header("ModelRelay Debug - Dashboard")
	html += ui.Navbar("/debug")
	html += ui.ContainerStart()

	const statCol = "col-md-6 col-lg-4 col-xl-2"
	html += ui.Row(
		ui.Column(statCol, components.StatCardWithLink(
			fmt.Sprintf("%d", len(sessions)),
			"Sessions", "📋", "primary",
			"/debug/sessions", "View Details",
		)) +
			ui.Column(statCol, components.StatCard(
				fmt.Sprintf("%d", len(users)),
				"Users", "👤", "success",
			)) +
			ui.Column(statCol, components.StatCard(
				fmt.Sprintf("%d", totalMessages),
				"Messages", "💬", "info",
			)) +
			ui.Column(statCol, components.StatCardWithLink(
				fmt.Sprintf("%d", totalTokens),
				"Tokens Used", "🪙", "warning",
				"/debug/usage", "View Chart",
			)) +
			ui.Column(statCol, components.StatCard(
				fmt.Sprintf("%d", totalMemories),
				"Memory Entries", "🧠", "danger",
			)))

	// Configuration overview
	html += components.ConfigCard("Relay Configuration", configItems(cfg))

	html += ui.ContainerEnd()
	html += ui.Footer()

	return html
}

// configItems flattens the interesting configuration values for display.
// Provider API keys are never included.
func configItems(cfg *config.Config) []components.ConfigItem {
	providers := make([]string, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, p.Name)
	}
	mappings := make([]string, 0, len(cfg.ModelMappings))
	for _, m := range cfg.ModelMappings {
		mappings = append(mappings, m.DisplayName)
	}

	return []components.ConfigItem{
		{Label: "Storage", Value: cfg.Storage.Type, Badge: components.StorageBadge(cfg.Storage.Type)},
		{Label: "Session TTL", Value: fmt.Sprintf("%ds", cfg.Server.SessionTTL)},
		{Label: "Reduction Mode", Value: cfg.Context.ReductionMode, Badge: components.ModeBadge(cfg.Context.ReductionMode)},
		{Label: "Max Turns", Value: fmt.Sprintf("%d", cfg.Context.MaxTurns)},
		{Label: "Max Tokens", Value: fmt.Sprintf("%d", cfg.Context.MaxTokens)},
		{Label: "Memory Zone", Value: fmt.Sprintf("%v", cfg.Context.MemoryZoneEnabled)},
		{Label: "Providers", Value: strings.Join(providers, ", ")},
		{Label: "Models", Value: strings.Join(mappings, ", ")},
	}
}
