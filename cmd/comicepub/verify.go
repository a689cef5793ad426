package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuanying/comicepub/internal/epub"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <book.epub>...",
		Short: "Check the container layout and page references of packaged books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := readLogger(cmd)
			if err != nil {
				return err
			}

			var errs []error
			for _, name := range args {
				s, err := epub.Verify(name)
				if err != nil {
					logger.Error("verification failed", "file", name, "error", err)
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				logger.Info("book ok",
					"file", name,
					"title", s.Title,
					"author", s.Author,
					"identifier", s.Identifier,
					"direction", s.Direction,
					"pages", s.Pages,
					"cover", s.CoverHref,
				)
			}
			return errors.Join(errs...)
		},
	}
}
