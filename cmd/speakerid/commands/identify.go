package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/voznote/speakerid/pkg/audio/extract"
	"github.com/voznote/speakerid/pkg/cli"
	"github.com/voznote/speakerid/pkg/diarize"
	"github.com/voznote/speakerid/pkg/pipeline"
	"github.com/voznote/speakerid/pkg/profile"
	"github.com/voznote/speakerid/pkg/recordings"
)

// speakerReport is the per-speaker result printed by identify.
type speakerReport struct {
	SpeakerID  string    `json:"speaker_id" yaml:"speaker_id"`
	ProfileID  uuid.UUID `json:"profile_id" yaml:"profile_id"`
	NewProfile bool      `json:"new_profile" yaml:"new_profile"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
}

// identifyReport is the top-level result printed by identify.
type identifyReport struct {
	MeetingID uuid.UUID       `json:"meeting_id" yaml:"meeting_id"`
	Speakers  []speakerReport `json:"speakers" yaml:"speakers"`
}

var identifyCmd = &cobra.Command{
	Use:   "identify <recording> <segments-file>",
	Short: "Identify speakers in a meeting recording",
	Long: `Identify speakers in a meeting recording.

The recording is a local path, file:// URI, or s3:// URI. The segments
file holds the diarization output as JSON or YAML: a list of objects
with speaker_id, start, end, and optional text fields.

For each diarization speaker the best voice sample is extracted,
embedded by the embedding service, and matched against the profile
database. Unmatched voices create new profiles.

Example:
  speakerid identify meeting.wav segments.json
  speakerid identify s3://recordings/meet-42.m4a segments.json --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordingURI, segmentsPath := args[0], args[1]

		meetingFlag, err := cmd.Flags().GetString("meeting-id")
		if err != nil {
			return fmt.Errorf("failed to read 'meeting-id' flag: %w", err)
		}
		meetingID := uuid.New()
		if meetingFlag != "" {
			meetingID, err = uuid.Parse(meetingFlag)
			if err != nil {
				return fmt.Errorf("invalid meeting id %q: %w", meetingFlag, err)
			}
		}

		ffmpegBin, err := cmd.Flags().GetString("ffmpeg")
		if err != nil {
			return fmt.Errorf("failed to read 'ffmpeg' flag: %w", err)
		}

		var segments []diarize.Segment
		if err := cli.LoadInput(segmentsPath, &segments); err != nil {
			return fmt.Errorf("failed to load segments: %w", err)
		}
		if len(segments) == 0 {
			return fmt.Errorf("no diarization segments in %s", segmentsPath)
		}

		cctx := getContext()
		logger := newLogger()

		store, err := profile.NewBadger(profile.BadgerOptions{Dir: cctx.StoreDir})
		if err != nil {
			return fmt.Errorf("failed to open profile store: %w", err)
		}
		defer store.Close()

		source := recordings.ForURI(recordingURI, newS3Source(cctx))
		localPath, cleanup, err := source.Localize(cmd.Context(), recordingURI)
		if err != nil {
			return fmt.Errorf("failed to fetch recording: %w", err)
		}
		defer cleanup()

		var extractOpts []extract.Option
		if ffmpegBin != "" {
			extractOpts = append(extractOpts, extract.WithBinary(ffmpegBin))
		}

		p := pipeline.New(store, newEmbeddingClient(cctx), extract.New(extractOpts...),
			pipeline.WithLogger(logger))

		start := time.Now()
		result, err := p.ProcessMeeting(cmd.Context(), localPath, segments, meetingID)
		if err != nil {
			return err
		}
		result.Wait()

		if result.AuthFailed {
			cli.PrintWarning("embedding service rejected the API key; no speakers were identified")
		}
		if verbose {
			cli.PrintInfo("processed %d speakers in %s",
				len(result.SpeakerMatches), cli.FormatSeconds(time.Since(start).Seconds()))
		}

		report := identifyReport{MeetingID: meetingID}
		for _, m := range result.SpeakerMatches {
			report.Speakers = append(report.Speakers, speakerReport{
				SpeakerID:  m.MeetingSpeakerID,
				ProfileID:  m.Profile.ID,
				NewProfile: m.IsNewProfile,
				Confidence: m.Confidence,
			})
		}

		return outputResult(report)
	},
}

// newS3Source builds the S3 recording source from the context settings.
// Credentials come from the standard AWS environment variables;
// anonymous access is used when they are absent (public buckets).
func newS3Source(cctx *cli.Context) *recordings.S3 {
	opts := s3.Options{
		Region: cctx.S3Region,
	}
	if opts.Region == "" {
		opts.Region = os.Getenv("AWS_REGION")
	}
	if cctx.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cctx.S3Endpoint)
		opts.UsePathStyle = true
	}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" && secretKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		}
		opts.Credentials = aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil })
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}

	return recordings.NewS3(s3.New(opts))
}

func init() {
	identifyCmd.Flags().String("meeting-id", "", "Meeting UUID (default: random)")
	identifyCmd.Flags().String("ffmpeg", "", "Path to the ffmpeg binary (default: $PATH lookup)")
}
