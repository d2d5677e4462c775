package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"photolog/internal/api"
)

var typeTitler = cases.Title(language.English)

// typeLabel renders a job type such as "tag-day" as "Tag Day".
func typeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Upload"
	}
	return typeTitler.String(strings.ReplaceAll(value, "-", " "))
}

var queueHeaders = []string{"ID", "Key", "Type", "Step", "Try", "Subject", "Queued"}

var queueAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}

func buildQueueRows(entries []api.QueueEntry, now time.Time) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		kind := typeLabel(entry.Type)
		subject := entry.Subject
		if entry.DecodeError != "" {
			kind = "Corrupt"
			subject = entry.DecodeError
		}
		step := entry.Step
		if step == "" {
			step = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			shortKey(entry.Key),
			kind,
			step,
			strconv.Itoa(entry.Attempt),
			subject,
			queuedAge(entry.EnqueuedAt, now),
		})
	}
	return rows
}

func buildQueueStatsRows(stats api.QueueStats) [][]string {
	return [][]string{
		{"Pending", humanize.Comma(int64(stats.Pending))},
		{"Quarantined", humanize.Comma(int64(stats.Bad))},
	}
}

func queuedAge(value string, now time.Time) string {
	ts := api.ParseQueueTime(value)
	if ts.IsZero() {
		return "-"
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

func shortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}

// listingFooter notes truncated listings.
func listingFooter(shown, total int) string {
	if total <= shown {
		return ""
	}
	return "Showing " + humanize.Comma(int64(shown)) + " of " + humanize.Comma(int64(total)) + " (use --limit to see more)"
}
