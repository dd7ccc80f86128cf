package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"smartfarm-dashboard-go/internal/trigger"
)

func newTriggerCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "trigger cam|esp32",
		Short:     "Wake the camera or the sensor board",
		Long:      "Send a device trigger, then wait for the follow-up refresh and print what it fetched.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"cam", "esp32"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := trigger.ParseAction(args[0])
			if err != nil {
				return err
			}
			noWait, _ := cmd.Flags().GetBool("no-wait")
			out := cmd.OutOrStdout()

			o := trigger.New(s.client, trigger.Refreshers{
				Gallery: func(ctx context.Context) error {
					uploads, err := s.client.ListUploads(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "gallery: %d images\n", len(uploads))
					if len(uploads) > 0 {
						fmt.Fprintf(out, "newest: %s\n", galleryLine(uploads[0]))
					}
					return nil
				},
				Sensor: func(ctx context.Context) error {
					snap, err := s.client.LatestSensor(ctx)
					if err != nil {
						return err
					}
					printSnapshot(out, snap)
					return nil
				},
			}, s.logger)

			task, err := o.Trigger(cmd.Context(), action)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s accepted: %s\n", action.Device(), task.Ack().Message)
			if noWait {
				return nil
			}

			fmt.Fprintf(out, "refreshing in %s...\n", trigger.FollowUpDelay)
			select {
			case <-task.Done():
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
			return task.FollowUpErr()
		},
	}
	cmd.Flags().Bool("no-wait", false, "Return once the trigger is accepted")
	return cmd
}
