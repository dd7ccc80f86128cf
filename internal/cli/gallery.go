package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smartfarm-dashboard-go/internal/camera"
	"smartfarm-dashboard-go/internal/farmapi"
)

func newGalleryCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "gallery",
		Short: "List captured images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uploads, err := s.client.ListUploads(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILENAME\tCAPTURED\tURL")
			for _, u := range uploads {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Filename, capturedAt(u), s.client.ResolveURL(u.URL))
			}
			return tw.Flush()
		},
	}
}

func newLatestImageCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest-image",
		Short: "Download the newest camera image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("output")
			if dir == "" {
				dir = s.cfg.SaveDir
			}
			img, err := s.client.LatestImage(cmd.Context())
			if err != nil {
				return err
			}
			path, err := camera.WriteImage(dir, img.Data, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Directory to save into (default: camera.save_dir)")
	return cmd
}

func newHealthCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.client.Health(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s offline\n", s.client.BaseURL())
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s online\n", s.client.BaseURL())
			return nil
		},
	}
}

func capturedAt(u farmapi.Upload) string {
	if u.CapturedAt.IsZero() {
		return u.RawTimestamp
	}
	return u.CapturedAt.Format(farmapi.TimestampLayout)
}

func galleryLine(u farmapi.Upload) string {
	return u.Filename + " " + capturedAt(u)
}
