package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
	"github.com/shoplist/adminapi/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, toggle, and delete the API keys that authorize requests through the access gate.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyToggleCmd())
	cmd.AddCommand(newKeyDeleteCmd())
	cmd.AddCommand(newKeyUsageCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		req       service.NewKeyRequest
		rateLimit int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new API key",
		Long: `Generate a new API key. The raw key is shown once and cannot be retrieved again.
Permissions are endpoint identifiers as listed by 'adminapi endpoints'.`,
		Example: `  adminapi key create mobile --permit lists_get --permit articles_get
  adminapi key create ci --permit stats_get --allow-ip 10.0.0.0/8 --expires-days 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			if cmd.Flags().Changed("rate-limit") {
				req.RateLimit = &rateLimit
			}
			return runKeyCreate(cmd.OutOrStdout(), req)
		},
	}

	cmd.Flags().StringSliceVar(&req.EndpointPermissions, "permit", nil, "Endpoint identifier the key may call (repeatable)")
	cmd.Flags().StringSliceVar(&req.IPRestrictions, "allow-ip", nil, "IP address or CIDR the key may be used from (repeatable)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Free-form description")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", model.DefaultRateLimit, "Requests per minute, 0 for unlimited")
	cmd.Flags().IntVar(&req.ExpiresDays, "expires-days", 0, "Days until the key expires, 0 for never")

	return cmd
}

func runKeyCreate(w io.Writer, req service.NewKeyRequest) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	key, raw, err := service.CreateAPIKey(context.Background(), store, req, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "API Key created:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  ID:          %d\n", key.ID)
	fmt.Fprintf(w, "  Key:         %s\n", raw)
	fmt.Fprintf(w, "  Name:        %s\n", key.Name)
	fmt.Fprintf(w, "  Permissions: %s\n", joinOrNone(key.EndpointPermissions))
	if len(key.IPRestrictions) > 0 {
		fmt.Fprintf(w, "  Allowed IPs: %s\n", strings.Join(key.IPRestrictions, ", "))
	}
	if key.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires:     %s\n", key.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(w io.Writer, jsonOutput bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	keys, err := store.ListAPIKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}
	return printKeys(w, keys, jsonOutput)
}

func printKeys(w io.Writer, keys []model.APIKey, jsonOutput bool) error {
	if jsonOutput {
		if keys == nil {
			keys = []model.APIKey{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Fprintln(w, "No API keys configured. Use 'adminapi key create' to create one.")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-16s %-8s %-10s %s\n", "ID", "NAME", "PREVIEW", "ACTIVE", "REQUESTS", "PERMISSIONS")
	fmt.Fprintf(w, "%-6s %-20s %-16s %-8s %-10s %s\n", "--", "----", "-------", "------", "--------", "-----------")
	for _, k := range keys {
		active := "yes"
		if !k.IsActive {
			active = "no"
		}
		fmt.Fprintf(w, "%-6d %-20s %-16s %-8s %-10d %s\n",
			k.ID, k.Name, k.KeyPreview, active, k.UsageCount, joinOrNone(k.EndpointPermissions))
	}
	return nil
}

// ---------- key toggle ----------

func newKeyToggleCmd() *cobra.Command {
	var active, inactive bool

	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Activate or deactivate an API key",
		Long:  "Flip the active flag of a key, or set it explicitly with --on or --off.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyID(args[0])
			if err != nil {
				return err
			}
			if active && inactive {
				return fmt.Errorf("--on and --off are mutually exclusive")
			}
			var want *bool
			if active || inactive {
				want = &active
			}
			return runKeyToggle(cmd.OutOrStdout(), id, want)
		},
	}

	cmd.Flags().BoolVar(&active, "on", false, "Activate the key")
	cmd.Flags().BoolVar(&inactive, "off", false, "Deactivate the key")

	return cmd
}

func runKeyToggle(w io.Writer, id int64, want *bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	key, err := store.GetAPIKey(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return fmt.Errorf("no API key with id %d", id)
	}
	if err != nil {
		return fmt.Errorf("get api key: %w", err)
	}

	next := !key.IsActive
	if want != nil {
		next = *want
	}
	if err := store.SetAPIKeyActive(ctx, id, next); err != nil {
		return fmt.Errorf("update api key: %w", err)
	}

	state := "activated"
	if !next {
		state = "deactivated"
	}
	fmt.Fprintf(w, "API key %d (%s) %s\n", id, key.Name, state)
	return nil
}

// ---------- key delete ----------

func newKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an API key and its usage history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyID(args[0])
			if err != nil {
				return err
			}
			return runKeyDelete(cmd.OutOrStdout(), id)
		},
	}
}

func runKeyDelete(w io.Writer, id int64) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	err = store.DeleteAPIKey(context.Background(), id)
	if errors.Is(err, config.ErrNotFound) {
		return fmt.Errorf("no API key with id %d", id)
	}
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	fmt.Fprintf(w, "Deleted API key %d\n", id)
	return nil
}

// ---------- key usage ----------

func newKeyUsageCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "usage <id>",
		Short: "Show usage statistics and recent requests of an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyID(args[0])
			if err != nil {
				return err
			}
			return runKeyUsage(cmd.OutOrStdout(), id, limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent requests to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyUsage(w io.Writer, id int64, limit int, jsonOutput bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	key, err := store.GetAPIKey(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return fmt.Errorf("no API key with id %d", id)
	}
	if err != nil {
		return fmt.Errorf("get api key: %w", err)
	}
	stats, err := store.KeyUsageStats(ctx, id)
	if err != nil {
		return fmt.Errorf("usage stats: %w", err)
	}
	records, err := store.ListUsageRecords(ctx, id, limit, 0)
	if err != nil {
		return fmt.Errorf("list usage: %w", err)
	}

	if jsonOutput {
		if records == nil {
			records = []model.UsageRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"key":          key,
			"total":        stats.TotalRequests,
			"successful":   stats.Successful,
			"failed":       stats.Failed,
			"success_rate": stats.SuccessRate(),
			"avg_ms":       stats.AvgResponseTimeMs,
			"records":      records,
		})
	}

	fmt.Fprintf(w, "API key %d (%s)\n", key.ID, key.Name)
	fmt.Fprintf(w, "  Requests:     %d (%d ok, %d failed, %.1f%% success)\n",
		stats.TotalRequests, stats.Successful, stats.Failed, stats.SuccessRate())
	fmt.Fprintf(w, "  Avg latency:  %.1f ms\n", stats.AvgResponseTimeMs)
	if stats.LastUsed != nil {
		fmt.Fprintf(w, "  Last used:    %s\n", stats.LastUsed.Format(time.RFC3339))
	}
	if len(records) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s %-7s %-32s %-6s %-8s %s\n", "TIME", "METHOD", "PATH", "STATUS", "MS", "IP")
	for _, r := range records {
		fmt.Fprintf(w, "%-20s %-7s %-32s %-6d %-8d %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Method, r.Path, r.ResponseStatus, r.ResponseTimeMs, r.IPAddress)
	}
	return nil
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
