package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"smartfarm-dashboard-go/internal/analysis"
	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/farmerr"
	"smartfarm-dashboard-go/internal/imagesource"
)

func newAnalyzeCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Check a leaf photo for disease",
		Long:  "Submit a local image, or a gallery image with --gallery, and print the diagnosis.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gallery, _ := cmd.Flags().GetString("gallery")
			ctx := cmd.Context()

			src, err := analysisSource(ctx, s.client, args, gallery)
			if err != nil {
				return err
			}

			payload, err := imagesource.NewResolver(s.client, s.logger).Resolve(ctx, src)
			var res *analysis.Result
			if err == nil {
				res, err = analysis.NewPipeline(s.client, s.logger).Submit(ctx, payload)
			}
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), farmerr.UserMessage(err, analysis.FailureText))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text())
			return nil
		},
	}
	cmd.Flags().String("gallery", "", "Analyze a gallery image by filename")
	return cmd
}

// analysisSource picks the source from the arguments. No file and no
// gallery name yields a nil source, which the resolver refuses.
func analysisSource(ctx context.Context, api *farmapi.Client, args []string, gallery string) (imagesource.Source, error) {
	const op = "analyze"
	switch {
	case len(args) == 1 && gallery != "":
		return nil, farmerr.New(farmerr.KindUserInputMissing, op, "give either a file or --gallery, not both")
	case len(args) == 1:
		local, err := imagesource.LocalFromFile(args[0])
		if err != nil {
			return nil, err
		}
		return local, nil
	case gallery != "":
		uploads, err := api.ListUploads(ctx)
		if err != nil {
			return nil, err
		}
		for _, u := range uploads {
			if u.Filename == gallery {
				return imagesource.Remote{URL: u.URL, Filename: u.Filename}, nil
			}
		}
		return nil, farmerr.New(farmerr.KindUserInputMissing, op, fmt.Sprintf("%s is not in the gallery", gallery))
	default:
		return nil, nil
	}
}
