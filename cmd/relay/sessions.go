package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/journal"
)

var sessionsFlags struct {
	limit    int
	provider string
	state    string
	since    time.Duration
	output   string
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions from the journal",
	Long: `List session records from the SQLite journal named in the config file,
newest first. Records hold outcome and timing only, never message content.

The memory backend only lives inside a running gateway; query it with
GET /sessions instead.

Examples:
  # Last 20 sessions
  relay sessions --limit 20

  # Failed sessions of one provider in the last hour
  relay sessions --provider openai --state failed --since 1h

  # Export as CSV
  relay sessions --output csv > sessions.csv`,
	RunE: listSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().IntVarP(&sessionsFlags.limit, "limit", "n", journal.DefaultListLimit, "maximum number of records")
	sessionsCmd.Flags().StringVar(&sessionsFlags.provider, "provider", "", "only this provider")
	sessionsCmd.Flags().StringVar(&sessionsFlags.state, "state", "", "only this final state (completed, failed, cancelled)")
	sessionsCmd.Flags().DurationVar(&sessionsFlags.since, "since", 0, "only sessions that ended within this duration")
	sessionsCmd.Flags().StringVarP(&sessionsFlags.output, "output", "o", "text", "output format: text, json, csv")
}

// recordTable renders journal records.
type recordTable []journal.Record

func (t recordTable) Header() []string {
	return []string{"ID", "PROVIDER", "MODEL", "STATE", "REASON", "CHUNKS", "BYTES", "FIRST CHUNK", "DURATION", "ENDED"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		state := r.State
		if r.ErrorKind != "" {
			state += " (" + r.ErrorKind + ")"
		}
		firstChunk := "-"
		if r.FirstChunkMS > 0 {
			firstChunk = formatMillis(r.FirstChunkMS)
		}
		rows = append(rows, []string{
			r.ID,
			r.Provider,
			r.Model,
			state,
			r.Reason,
			strconv.Itoa(r.Chunks),
			strconv.FormatInt(r.Bytes, 10),
			firstChunk,
			formatMillis(r.DurationMS),
			r.EndedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func listSessions(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(sessionsFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled || cfg.Journal.Backend != journal.BackendSQLite {
		return cli.NewConfigError(cfgFile, fmt.Errorf("journal.backend must be %q to list sessions offline", journal.BackendSQLite))
	}

	store, err := journal.NewSQLiteStore(cfg.Journal.SQLite)
	if err != nil {
		return cli.NewCommandError("sessions", err)
	}
	defer store.Close()

	filter := journal.Filter{
		Provider: sessionsFlags.provider,
		State:    sessionsFlags.state,
		Limit:    sessionsFlags.limit,
	}
	if sessionsFlags.since > 0 {
		filter.Since = time.Now().Add(-sessionsFlags.since)
	}

	records, err := store.List(cmd.Context(), filter)
	if err != nil {
		return cli.NewCommandError("sessions", err)
	}
	if records == nil {
		records = []journal.Record{}
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), recordTable(records))
}
