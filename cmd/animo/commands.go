package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/animolabs/animo/internal/config"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <text>",
	Short: "Send a message to the coach",
	Long: `Send a message to the coach and print the reply.

Examples:
  animo chat "hoy me siento muy solo"
  animo chat --session trabajo "tuve un mal día en la oficina"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"text": text}
		if sessionID != "" {
			req["session_id"] = sessionID
		}

		resp, err := client.post(cmd.Context(), "/coach", req)
		if err != nil {
			return err
		}

		var reply struct {
			Emotion   string `json:"emotion"`
			Advice    string `json:"advice"`
			SessionID string `json:"session_id"`
		}
		if err := decodeJSON(resp, &reply); err != nil {
			return err
		}

		fmt.Printf("%s %s\n", colorize(colorCyan, "["+reply.Emotion+"]"), colorize(colorBold, "sesión "+reply.SessionID))
		fmt.Println(reply.Advice)
		return nil
	},
}

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Classify the emotion of a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		topK, _ := cmd.Flags().GetInt("top-k")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"text": text, "top_k": topK}
		resp, err := client.post(cmd.Context(), "/predict", req)
		if err != nil {
			return err
		}

		var result struct {
			Label       string  `json:"label"`
			Probability float64 `json:"probability"`
			Ranked      []struct {
				Label string  `json:"label"`
				Prob  float64 `json:"prob"`
			} `json:"top_k"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Printf("%s (%.1f%%)\n", colorize(colorBold, result.Label), result.Probability*100)
		for _, s := range result.Ranked {
			fmt.Printf("  %-10s %5.1f%%\n", s.Label, s.Prob*100)
		}
		return nil
	},
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear a coaching session's history",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/coach/session"
		if sessionID != "" {
			path += "?session_id=" + url.QueryEscape(sessionID)
		}
		resp, err := client.delete(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result["message"])
		return nil
	},
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live and archived coaching sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions")
		if err != nil {
			return err
		}

		var result struct {
			Live     []string `json:"live"`
			Archived []struct {
				SessionID    string `json:"session_id"`
				Exchanges    int    `json:"exchanges"`
				LastActivity string `json:"last_activity"`
			} `json:"archived"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Live) == 0 && len(result.Archived) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		for _, id := range result.Live {
			fmt.Printf("%s  %s\n", colorize(colorGreen, "live    "), id)
		}
		for _, s := range result.Archived {
			fmt.Printf("%s  %s  %d exchanges  %s\n", colorize(colorCyan, "archived"), s.SessionID, s.Exchanges, s.LastActivity)
		}
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show the archived transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/sessions/%s/transcript?limit=%d", url.PathEscape(args[0]), limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var exchanges []struct {
			UserText  string `json:"user_text"`
			Emotion   string `json:"emotion"`
			Risk      bool   `json:"risk"`
			Advice    string `json:"advice"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &exchanges); err != nil {
			return err
		}

		if len(exchanges) == 0 {
			fmt.Println("No exchanges found.")
			return nil
		}

		for _, ex := range exchanges {
			label := ex.Emotion
			if ex.Risk {
				label += " ⚠"
			}
			fmt.Printf("\n%s %s\n", colorize(colorBold, ex.CreatedAt), colorize(colorCyan, "["+label+"]"))
			fmt.Printf("  > %s\n", ex.UserText)
			fmt.Printf("  %s\n", ex.Advice)
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().String("session", "", "session id (default: \"default\")")
	classifyCmd.Flags().Int("top-k", 3, "number of ranked labels to show")
	resetCmd.Flags().String("session", "", "session id (default: \"default\")")
	historyCmd.Flags().Int("limit", 50, "maximum number of exchanges to show")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
