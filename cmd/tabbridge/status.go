package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/tabbridge/internal/discovery"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show running tabbridge instances and their connection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runStatusWatch()
			}
			instances, err := discovery.List()
			if err != nil {
				return err
			}
			renderStatus(instances)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and refresh as instances come and go")
	return cmd
}

// runStatusWatch re-renders on instance file changes and on a periodic
// tick, since connection state can change without any file event.
func runStatusWatch() error {
	dir, err := discovery.InstancesDir()
	if err != nil {
		return err
	}
	watcher, err := discovery.NewWatcher(dir, log.New(io.Discard))
	if err != nil {
		return err
	}
	defer watcher.Close()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		fmt.Print("\033[H\033[2J")
		renderStatus(watcher.Instances())
		fmt.Println(dimStyle.Render("watching; ctrl-c to stop"))

		select {
		case <-watcher.Changes():
		case <-ticker.C:
		case <-sigCh:
			return nil
		}
	}
}

func renderStatus(instances []discovery.Instance) {
	if len(instances) == 0 {
		fmt.Println(dimStyle.Render("no tabbridge instances registered"))
		return
	}

	fmt.Println(headerStyle.Render("tabbridge instances"))
	client := &http.Client{Timeout: 2 * time.Second}
	for _, inst := range instances {
		line := fmt.Sprintf("  %s  port %d  pid %d  up since %s",
			inst.ID, inst.Port, inst.PID, inst.StartedAt.Format(time.Kitchen))

		health, err := fetchHealth(client, inst.Port)
		switch {
		case err != nil:
			fmt.Printf("%s  %s\n", line, downStyle.Render("unreachable"))
		case health.Connected:
			detail := "extension connected"
			if health.CurrentURL != "" {
				detail += " at " + health.CurrentURL
			}
			fmt.Printf("%s  %s\n", line, okStyle.Render(detail))
		default:
			fmt.Printf("%s  %s\n", line, downStyle.Render("extension disconnected"))
		}
	}
}

type healthReport struct {
	Connected  bool   `json:"connected"`
	CurrentURL string `json:"currentUrl"`
}

func fetchHealth(client *http.Client, port int) (*healthReport, error) {
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}
