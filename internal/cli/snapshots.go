package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	snapshotsProjectID int64
	snapshotsFrom      string
	snapshotsTo        string
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Show daily share-of-voice snapshots",
	RunE:  runSnapshots,
}

func init() {
	snapshotsCmd.Flags().Int64VarP(&snapshotsProjectID, "project", "p", 0, "project id (required)")
	snapshotsCmd.Flags().StringVar(&snapshotsFrom, "from", "", "start date (YYYY-MM-DD)")
	snapshotsCmd.Flags().StringVar(&snapshotsTo, "to", "", "end date (YYYY-MM-DD)")
	snapshotsCmd.MarkFlagRequired("project")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	snapshots, err := store.ListSnapshots(context.Background(), snapshotsProjectID, snapshotsFrom, snapshotsTo)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println(FormatWarning("No snapshots in range. Run 'sovtrack run' first."))
		return nil
	}

	fmt.Println(FormatHeader(fmt.Sprintf("📈 Snapshots for project %d", snapshotsProjectID)))
	fmt.Printf("%-12s %-12s %-8s %-10s %-8s %-10s %-10s %s\n",
		"DATE", "PROVIDER", "QUERIES", "MENTIONS", "RATE", "SOV", "W-SOV", "AVG POS")
	for _, s := range snapshots {
		avgPos := "-"
		if s.AvgPosition != nil {
			avgPos = fmt.Sprintf("%.1f", *s.AvgPosition)
		}
		fmt.Printf("%-12s %-12s %-8d %-10d %-8s %-10s %-10s %s\n",
			s.SnapshotDate, s.LLMProvider, s.TotalQueries, s.TotalMentions,
			fmt.Sprintf("%.0f%%", s.MentionRate),
			fmt.Sprintf("%.1f%%", s.ShareOfVoice),
			fmt.Sprintf("%.1f%%", s.WeightedShareOfVoice),
			avgPos)
	}
	return nil
}
