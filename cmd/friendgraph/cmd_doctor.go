package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/friendgraph/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against the config file, the server and authentication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runDoctorChecks(cmd.Context(), apiClient)
			return printDoctor(cmd.OutOrStdout(), results)
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctorChecks(ctx context.Context, c *client.Client) []checkResult {
	var results []checkResult

	cfgPath, _, cfgErr := loadConfigFile()
	switch {
	case cfgErr == nil:
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: fmt.Sprintf("found (%s)", cfgPath)})
	case errors.Is(cfgErr, os.ErrNotExist):
		// Flags and environment are enough on their own.
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: "not present, using flags and environment"})
	default:
		results = append(results, checkResult{
			Name: "Config file", Detail: cfgPath,
			Hint: fmt.Sprintf("Fix or remove the file. Error: %v", cfgErr),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		return append(results, checkResult{
			Name: "Server reachable", Detail: flagURL,
			Hint: fmt.Sprintf("Is the server running? Try: friendgraph serve\n   Error: %v", err),
		})
	}

	detail := flagURL
	if health.Version != "" {
		detail = fmt.Sprintf("%s (%s, store: %s)", flagURL, health.Version, health.Database)
	}
	results = append(results, checkResult{Name: "Server reachable", Passed: true, Detail: detail})
	results = append(results, readinessCheck(ctx, c))

	if _, err := c.Crawls.List(ctx, 1); err != nil {
		var apiErr *client.APIError
		hint := fmt.Sprintf("Error: %v", err)
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			hint = "Check --api-key, FRIENDGRAPH_API_KEY or the active profile"
		}
		return append(results, checkResult{Name: "Authentication", Hint: hint})
	}

	return append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})
}

// readinessCheck reports failing probes by name, e.g. "cache: error".
func readinessCheck(ctx context.Context, c *client.Client) checkResult {
	ready, err := c.Ready(ctx)
	if ready == nil {
		return checkResult{Name: "Dependencies", Hint: fmt.Sprintf("Readiness probe failed. Error: %v", err)}
	}

	if err == nil {
		return checkResult{Name: "Dependencies", Passed: true, Detail: fmt.Sprintf("%d checks ok", len(ready.Checks))}
	}

	names := make([]string, 0, len(ready.Checks))
	for name, state := range ready.Checks {
		if state != "ok" {
			names = append(names, name+": "+state)
		}
	}
	sort.Strings(names)

	return checkResult{
		Name:   "Dependencies",
		Detail: strings.Join(names, ", "),
		Hint:   "Check DATABASE_URL and REDIS_URL on the server",
	}
}

func printDoctor(w io.Writer, results []checkResult) error {
	fmt.Fprintln(w)
	allPassed := true
	for _, r := range results {
		mark := "✅"
		if !r.Passed {
			mark = "❌"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Fprintf(w, "%s %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Fprintf(w, "   Hint: %s\n", r.Hint)
		}
	}

	fmt.Fprintln(w)
	if !allPassed {
		fmt.Fprintln(w, "❌ Some checks failed.")
		return fmt.Errorf("doctor found issues")
	}
	fmt.Fprintln(w, "✅ All checks passed!")
	return nil
}
