package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"photolog/internal/ingest"
	"photolog/internal/job"
	"photolog/internal/queueaccess"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	tagDay := &cobra.Command{
		Use:   "tag-day <YYYY-MM-DD> <tag>...",
		Short: "Replace the tags of every picture taken on a day",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := job.ParseDay(args[0])
			if err != nil {
				return err
			}
			return enqueueJob(cmd, ctx, ingest.NewTagDay(day, args[1:]))
		},
	}

	var massTags []string
	massTag := &cobra.Command{
		Use:   "mass-tag --tags a,b <key>...",
		Short: "Replace the tags of the listed pictures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(massTags) == 0 {
				return errors.New("--tags is required")
			}
			return enqueueJob(cmd, ctx, ingest.NewMassTag(args, massTags))
		},
	}
	massTag.Flags().StringSliceVarP(&massTags, "tags", "t", nil, "Tags to set (comma separated or repeated)")

	editDates := &cobra.Command{
		Use:   "edit-dates <key>=<date>...",
		Short: "Set the taken date of individual pictures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseDateEdits(args)
			if err != nil {
				return err
			}
			return enqueueJob(cmd, ctx, ingest.NewEditDates(items))
		},
	}

	changeDate := &cobra.Command{
		Use:   "change-date <from YYYY-MM-DD> <to YYYY-MM-DD>",
		Short: "Move every picture taken on one day to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := job.ParseDay(args[0])
			if err != nil {
				return err
			}
			to, err := job.ParseDay(args[1])
			if err != nil {
				return err
			}
			return enqueueJob(cmd, ctx, ingest.NewChangeDate(from, to))
		},
	}

	return []*cobra.Command{tagDay, massTag, editDates, changeDate}
}

func parseDateEdits(args []string) ([]job.DateEdit, error) {
	items := make([]job.DateEdit, 0, len(args))
	for _, arg := range args {
		key, date, ok := strings.Cut(arg, "=")
		key, date = strings.TrimSpace(key), strings.TrimSpace(date)
		if !ok || key == "" || date == "" {
			return nil, fmt.Errorf("expected <key>=<date>, got %q", arg)
		}
		if _, err := job.ParseTaken(date); err != nil {
			return nil, err
		}
		items = append(items, job.DateEdit{Key: key, DateTaken: date})
	}
	return items, nil
}

func enqueueJob(cmd *cobra.Command, ctx *commandContext, rec *job.Record) error {
	return ctx.withQueue(func(access queueaccess.Access) error {
		key, err := access.Enqueue(cmd.Context(), rec)
		if err != nil {
			return err
		}
		if ctx.JSONMode() {
			return writeJSON(cmd, map[string]string{"key": key, "type": string(rec.Kind())})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued %s job %s\n", rec.Kind(), key)
		return nil
	})
}
