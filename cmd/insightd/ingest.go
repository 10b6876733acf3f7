package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/config"
	"github.com/fyrsmithlabs/insightd/internal/engine"
	"github.com/fyrsmithlabs/insightd/internal/meeting"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a meeting record file",
	Long: `Ingest a meeting analysis record from a JSON file or stdin.

With --server the record is posted to a running daemon; without it a
one-shot in-process engine analyzes the record and prints the result.

Examples:
  # One-shot local analysis
  insightd ingest meeting.json

  # Post to a running daemon
  insightd ingest --server http://localhost:8087 meeting.json

  # From stdin
  cat meeting.json | insightd ingest -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}

	if serverURL != "" {
		return postRecord(serverURL, raw)
	}
	return ingestLocal(raw)
}

// postRecord sends the record to a running daemon.
func postRecord(baseURL string, raw []byte) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(baseURL+"/api/v1/meetings", "application/json", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("posting record: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}
	fmt.Println(string(body))
	return nil
}

// ingestLocal runs a one-shot engine over the record and prints the
// analysis.
func ingestLocal(raw []byte) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var rec meeting.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("parsing record: %w", err)
	}

	eng := engine.New(cfg.Engine, zap.NewNop())
	result, err := eng.IngestMeeting(context.Background(), &rec)
	if err != nil {
		return fmt.Errorf("ingesting record: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
