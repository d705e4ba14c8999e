package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func messageCmd() *cobra.Command {
	var sessionID string
	c := &cobra.Command{
		Use:   "message <text>",
		Short: "Send a one-off message to the running gateway's HTTP API",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runMessage(args[0], sessionID); err != nil {
				fail(err)
			}
		},
	}
	c.Flags().StringVar(&sessionID, "session-id", "", "reuse an existing session id instead of the HTTP default")
	return c
}

type messageRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

type messageResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func runMessage(text, sessionID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	body, err := json.Marshal(messageRequest{Text: text, SessionID: sessionID})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/api/v1/message", cfg.Gateway.Bind)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Gateway.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Gateway.APIToken)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("is neko running? %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out messageResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	fmt.Println(out.Response)
	return nil
}
