package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuanying/comicepub/internal/config"
	"github.com/yuanying/comicepub/internal/imageproc"
)

func newSplitCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <directory>",
		Short: "Split landscape images into left and right pages in place",
		Long: `split replaces every image that is wider than tall with two files,
<name>_0 for the left half and <name>_1 for the right half.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := readLogger(cmd)
			if err != nil {
				return err
			}
			quality, _ := cmd.Flags().GetInt("quality")
			if quality < 1 || quality > 100 {
				return fmt.Errorf("--quality must be between 1 and 100, got %d", quality)
			}

			s := imageproc.NewSplitter(imageproc.Options{JPEGQuality: quality, Logger: logger})
			_, err = s.SplitDir(args[0])
			return err
		},
	}
	cmd.Flags().Int("quality", cfg.JPEGQuality, "JPEG quality of the written halves [1-100]")
	return cmd
}
