// Package main implements the scnctl CLI for manual operations against the
// scenariod HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the scenariod HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scnctl",
	Short: "CLI for scenariod server operations",
	Long: `scnctl is a command-line interface for the scenariod HTTP server.
It starts scenario runs, inspects their timelines and resolves pending
decisions.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8420", "scenariod server URL")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(healthCmd)
}

var runInteractive bool

// runCmd starts a new scenario run
var runCmd = &cobra.Command{
	Use:   "run <type>",
	Short: "Start a new scenario run",
	Long: `Start a new scenario run of the given incident type.

Examples:
  # Start a ransomware run
  scnctl run ransomware

  # Start an interactive phishing run that suspends for decisions
  scnctl run phishing --interactive`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

// statusCmd shows one run
var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show a run's status and timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

// listCmd lists all runs
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all runs",
	RunE:  runList,
}

var decideNotes string

// decideCmd shows or resolves a pending decision
var decideCmd = &cobra.Command{
	Use:   "decide <run-id> [option-id]",
	Short: "Show the pending decision, or resolve it with an option",
	Long: `Without an option id, prints the pending decision and its options.
With one, resolves the decision and resumes the run.

Examples:
  # See what is being asked
  scnctl decide 3f2a...

  # Choose an option
  scnctl decide 3f2a... isolate-db-01 --notes "cutting off the database"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDecide,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check scenariod server health",
	RunE:  runHealth,
}

func init() {
	runCmd.Flags().BoolVar(&runInteractive, "interactive", false, "suspend for decisions")
	decideCmd.Flags().StringVar(&decideNotes, "notes", "", "free-form notes recorded with the choice")
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// getJSON fetches path and decodes the response into out.
func getJSON(path string, out any) error {
	resp, err := httpClient().Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON sends body to path and decodes the response into out when non-nil.
func postJSON(path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient().Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func runStart(cmd *cobra.Command, args []string) error {
	var view runView
	err := postJSON("/v1/runs", map[string]any{
		"type":        args[0],
		"interactive": runInteractive,
	}, &view)
	if err != nil {
		return err
	}
	fmt.Printf("run started: %s (%s)\n", view.ID, view.Status)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	var view runView
	if err := getJSON("/v1/runs/"+args[0], &view); err != nil {
		return err
	}
	printRun(view)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	var views []runView
	if err := getJSON("/v1/runs", &views); err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Println("no runs")
		return nil
	}
	for _, v := range views {
		fmt.Printf("%s  %-10s  %-16s  iter=%-3d  injects=%d\n",
			v.ID, v.Status, v.Phase, v.Iteration, v.InjectCount)
	}
	return nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	runID := args[0]
	if len(args) == 1 {
		var d decisionView
		if err := getJSON("/v1/runs/"+runID+"/decision", &d); err != nil {
			return err
		}
		fmt.Printf("decision %s (phase %s, iteration %d)\n", d.ID, d.Phase, d.Situation.Iteration)
		for _, opt := range d.Options {
			fmt.Printf("  %-24s %s\n", opt.ID, opt.Label)
		}
		return nil
	}

	err := postJSON("/v1/runs/"+runID+"/decision", map[string]string{
		"option_id": args[1],
		"notes":     decideNotes,
	}, nil)
	if err != nil {
		return err
	}
	fmt.Println("decision resolved, run resumed")
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	var h struct {
		Status string `json:"status"`
	}
	if err := getJSON("/healthz", &h); err != nil {
		return err
	}
	fmt.Printf("server healthy: %s\n", h.Status)
	return nil
}

func printRun(v runView) {
	fmt.Printf("run:          %s\n", v.ID)
	fmt.Printf("type:         %s\n", v.Type)
	fmt.Printf("status:       %s\n", v.Status)
	fmt.Printf("phase:        %s\n", v.Phase)
	fmt.Printf("iteration:    %d\n", v.Iteration)
	fmt.Printf("end:          %s\n", v.EndCondition)
	if v.StopReason != "" {
		fmt.Printf("stop reason:  %s\n", v.StopReason)
	}
	fmt.Printf("injects:      %d\n", v.InjectCount)
	for _, in := range v.Injects {
		flag := " "
		if in.ForceAccepted {
			flag = "!"
		}
		fmt.Printf("  %s%s [%-8s] %s\n", flag, in.TimeOffset, in.Severity, in.Content)
	}
}

// runView mirrors internal/server RunView.
type runView struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Status       string       `json:"status"`
	Phase        string       `json:"phase"`
	Iteration    int          `json:"iteration"`
	EndCondition string       `json:"end_condition"`
	StopReason   string       `json:"stop_reason"`
	InjectCount  int          `json:"inject_count"`
	Injects      []injectView `json:"injects"`
}

type injectView struct {
	TimeOffset    string `json:"time_offset"`
	Severity      string `json:"severity"`
	Content       string `json:"content"`
	ForceAccepted bool   `json:"force_accepted"`
}

// decisionView mirrors the scenario decision shape.
type decisionView struct {
	ID        string `json:"id"`
	Phase     string `json:"phase"`
	Situation struct {
		Iteration int `json:"iteration"`
	} `json:"situation"`
	Options []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"options"`
}
