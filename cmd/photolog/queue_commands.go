package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photolog/internal/api"
	"photolog/internal/ipc"
	"photolog/internal/queue"
	"photolog/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueuePeekCommand(ctx))
	queueCmd.AddCommand(newQueueBadCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueuePurgeCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending and quarantined counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderTable([]string{"Queue", "Count"}, buildQueueStatsRows(stats), []columnAlignment{alignLeft, alignRight}))
				if !access.Remote() {
					fmt.Fprintln(out, "(daemon not running; read from queue database)")
				}
				return nil
			})
		},
	}
}

func newQueuePeekCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "List pending jobs in dequeue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				resp, err := access.Peek(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printListing(cmd, ctx, resp, "Queue is empty")
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", api.DefaultPeekLimit, "Maximum number of jobs to list")
	return cmd
}

func newQueueBadCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "bad",
		Short: "List quarantined jobs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				resp, err := access.Bad(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printListing(cmd, ctx, resp, "No quarantined jobs")
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", api.DefaultPeekLimit, "Maximum number of jobs to list")
	return cmd
}

func printListing(cmd *cobra.Command, ctx *commandContext, resp api.QueueListResponse, empty string) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	if len(resp.Entries) == 0 {
		fmt.Fprintln(out, empty)
		return nil
	}
	fmt.Fprint(out, renderTable(queueHeaders, buildQueueRows(resp.Entries, time.Now()), queueAligns))
	if footer := listingFooter(len(resp.Entries), resp.Total); footer != "" {
		fmt.Fprintln(out, footer)
	}
	return nil
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Move every quarantined job back to the queue with attempts reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				moved, err := access.Retry(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.RetryResponse{Moved: moved})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d quarantined job(s)\n", moved)
				return nil
			})
		},
	}
}

func newQueuePurgeCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge [id...]",
		Short: "Delete quarantined jobs by id, or all of them with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("pass ids or --all, not both")
			}
			if !all && len(args) == 0 {
				return errors.New("specify quarantined job ids or --all")
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				out := cmd.OutOrStdout()
				if all {
					removed, err := access.PurgeAll(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, api.PurgeResponse{Removed: removed})
					}
					fmt.Fprintf(out, "Purged %d quarantined job(s)\n", removed)
					return nil
				}
				result, err := access.Purge(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.PurgeItemRemoved:
						fmt.Fprintf(out, "Job %d purged\n", item.ID)
					default:
						fmt.Fprintf(out, "Job %d not found in quarantine\n", item.ID)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Purge every quarantined job")
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, tables, integrity)",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := queueHealth(cmd, ctx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
			fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %d\n", resp.SchemaVersion)
			if len(resp.TablesPresent) > 0 {
				fmt.Fprintf(out, "Tables: %s\n", strings.Join(resp.TablesPresent, ", "))
			}
			if len(resp.MissingTables) > 0 {
				fmt.Fprintf(out, "Missing tables: %s\n", strings.Join(resp.MissingTables, ", "))
			} else {
				fmt.Fprintln(out, "Missing tables: none")
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
			fmt.Fprintf(out, "Pending: %d\n", resp.Pending)
			fmt.Fprintf(out, "Quarantined: %d\n", resp.Bad)
			if resp.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", resp.Error)
			}
			return nil
		},
	}
}

// queueHealth asks the daemon, or inspects the database file itself when no
// daemon is listening.
func queueHealth(cmd *cobra.Command, ctx *commandContext) (ipc.DatabaseHealthResponse, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return ipc.DatabaseHealthResponse{}, err
	}
	if client, dialErr := ipc.Dial(cfg.SocketPath()); dialErr == nil {
		defer client.Close()
		resp, err := client.DatabaseHealth()
		if err != nil {
			return ipc.DatabaseHealthResponse{}, err
		}
		return *resp, nil
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return ipc.DatabaseHealthResponse{DBPath: cfg.QueueDBPath(), Error: err.Error()}, nil
	}
	defer store.Close()
	health, err := store.CheckHealth(cmd.Context())
	if err != nil && health.Error == "" {
		return ipc.DatabaseHealthResponse{}, err
	}
	return ipc.DatabaseHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		TablesPresent:    health.TablesPresent,
		MissingTables:    health.MissingTables,
		IntegrityCheck:   health.IntegrityCheck,
		Pending:          health.Pending,
		Bad:              health.Bad,
		Error:            health.Error,
	}, nil
}
