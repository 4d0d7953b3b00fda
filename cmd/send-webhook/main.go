package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/evalforge/checkgate/webhook"
	"github.com/evalforge/checkgate/webhook/signature"
)

/* send-webhook - Standalone CLI tool to send a signed workflow_run
 * delivery to a running checkgate instance
 * Usage: go run cmd/send-webhook/main.go -url http://localhost:8080/v1/webhooks/github -secret topsecret -sha <commit>
 * Exit codes: 0 = delivered, 1 = failed
 */

func main() {
	url := flag.String("url", "http://localhost:8080/v1/webhooks/github", "webhook endpoint URL")
	secret := flag.String("secret", "", "webhook secret used to sign the payload")
	owner := flag.String("owner", "evalforge", "repository owner")
	repo := flag.String("repo", "prompt-evals", "repository name")
	sha := flag.String("sha", "", "head commit SHA (required)")
	runID := flag.Int64("run-id", time.Now().Unix(), "workflow run id")
	action := flag.String("action", "completed", "workflow_run action")
	flag.Parse()

	if *secret == "" || *sha == "" {
		fmt.Fprintln(os.Stderr, "both -secret and -sha are required")
		flag.Usage()
		os.Exit(1)
	}

	payload := map[string]any{
		"action": *action,
		"workflow_run": map[string]any{
			"id":         *runID,
			"head_sha":   *sha,
			"status":     "completed",
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
		"repository": map[string]any{
			"id":        1,
			"name":      *repo,
			"full_name": *owner + "/" + *repo,
			"owner":     map[string]any{"login": *owner},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshaling payload: %v\n", err)
		os.Exit(1)
	}

	deliveryID := uuid.New().String()
	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, signature.Header([]byte(*secret), body))
	req.Header.Set(webhook.EventHeader, "workflow_run")
	req.Header.Set(webhook.DeliveryHeader, deliveryID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sending webhook: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Delivery: %s\n", deliveryID)
	fmt.Printf("Status:   %s\n", resp.Status)
	fmt.Printf("Response: %s\n", respBody)

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
