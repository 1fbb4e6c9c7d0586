package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/voznote/speakerid/pkg/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect the speaker profile database",
}

func openStore() (*profile.Badger, error) {
	cctx := getContext()
	store, err := profile.NewBadger(profile.BadgerOptions{Dir: cctx.StoreDir})
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	return store, nil
}

var profilesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all speaker profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		profiles, err := store.ActiveProfiles(cmd.Context())
		if err != nil {
			return err
		}

		sort.Slice(profiles, func(i, j int) bool {
			return profiles[i].LastSeenAt.After(profiles[j].LastSeenAt)
		})

		if outputJSON {
			return outputResult(profiles)
		}

		if len(profiles) == 0 {
			fmt.Println("No speaker profiles yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMEETINGS\tAVG_CONF\tDIM\tLAST_SEEN")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%d\t%.3f\t%d\t%s\n",
				p.ID, p.MeetingCount, p.AvgConfidence, len(p.Embedding),
				p.LastSeenAt.Format(time.RFC3339))
		}
		w.Flush()
		return nil
	},
}

var profilesLinksCmd = &cobra.Command{
	Use:   "links <meeting-id>",
	Short: "Show speaker-to-profile links for a meeting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meetingID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid meeting id %q: %w", args[0], err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		links, err := store.Links(cmd.Context(), meetingID)
		if err != nil {
			return err
		}

		sort.Slice(links, func(i, j int) bool {
			return links[i].MeetingSpeakerID < links[j].MeetingSpeakerID
		})

		if outputJSON {
			return outputResult(links)
		}

		if len(links) == 0 {
			fmt.Println("No links for this meeting")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SPEAKER\tPROFILE\tCONFIDENCE\tCREATED")
		for _, l := range links {
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\n",
				l.MeetingSpeakerID, l.ProfileID, l.Confidence,
				l.CreatedAt.Format(time.RFC3339))
		}
		w.Flush()
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesLinksCmd)
}
