package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func printStartupBanner(cfg appConfig, logPath string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	row := func(mark, label, value string) string {
		return fmt.Sprintf("    %s  %-14s %s", mark, label, value)
	}

	var lines []string
	lines = append(lines, "", cyan.Bold(true).Render("    chatlog"), "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Source"), "")
	lines = append(lines, row(check, "Chat Log", cyan.Render(shortenPath(logPath))))
	lines = append(lines, row(check, "Timezone", dim.Render(cfg.Timezone)))
	if cfg.Watch {
		lines = append(lines, row(check, "Polling", dim.Render(cfg.PollInterval.String()+" + file events")))
	} else {
		lines = append(lines, row(check, "Polling", dim.Render(cfg.PollInterval.String())))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, row(check, "HTTP API", cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, row(dot, "HTTP API", dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Archive"), "")
	switch {
	case !cfg.ArchiveEnabled:
		lines = append(lines, row(dot, "Storage", dim.Render("disabled")))
	case cfg.DBPath == "":
		lines = append(lines, row(check, "Storage", dim.Render("in memory")))
	default:
		lines = append(lines, row(check, "Storage", dim.Render(shortenPath(cfg.DBPath))))
	}
	if cfg.ArchiveEnabled && cfg.BackupDir != "" {
		lines = append(lines, row(check, "Snapshots", dim.Render(shortenPath(cfg.BackupDir))))
	} else {
		lines = append(lines, row(dot, "Snapshots", dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(check, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(dot, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
