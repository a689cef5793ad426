package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yuanying/comicepub/internal/config"
	"github.com/yuanying/comicepub/internal/epub"
)

const (
	defaultTitle  = "Unknown Title"
	defaultAuthor = "Unknown Author"
)

type packOptions struct {
	Dir          string
	OutputPath   string
	PageListPath string
	TOCListPath  string
	Order        epub.OrderFunc
	Meta         epub.Metadata
	Pack         epub.PackOptions
	Logger       *slog.Logger
}

func newPackCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <directory> [output.epub]",
		Short: "Package a directory of page images as an EPUB",
		Long: `pack writes every jpeg, png and svg image of a directory as one page of
a fixed-layout EPUB. The first image becomes the cover.

Without an output path the book is written next to the directory as
<directory>.epub.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readPackOptions(cmd, args)
			if err != nil {
				return err
			}
			return runPack(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringP("title", "t", defaultTitle, "Title of the book")
	flags.StringP("author", "a", defaultAuthor, "Author of the book")
	flags.StringP("identifier", "i", "", "Book identifier (default: random urn:uuid)")
	flags.StringP("direction", "d", cfg.Direction, "Reading direction (ltr or rtl)")
	flags.StringArrayP("subject", "s", nil, "Subject of the book, may be repeated")
	flags.IntP("level", "l", cfg.CompressionLevel, "Compression level [0-9]")
	flags.String("language", cfg.Language, "Language of the book")
	flags.String("pagelist", "", "Text file listing the page images in order")
	flags.String("toclist", "", "Text file with alternating table of contents labels and image names")
	flags.String("order", "name", "Ordering of directory listings (name or chapter)")
	return cmd
}

func readPackOptions(cmd *cobra.Command, args []string) (packOptions, error) {
	logger, err := readLogger(cmd)
	if err != nil {
		return packOptions{}, err
	}

	flags := cmd.Flags()
	title, _ := flags.GetString("title")
	author, _ := flags.GetString("author")
	identifier, _ := flags.GetString("identifier")
	direction, _ := flags.GetString("direction")
	subjects, _ := flags.GetStringArray("subject")
	level, _ := flags.GetInt("level")
	language, _ := flags.GetString("language")
	pageList, _ := flags.GetString("pagelist")
	tocList, _ := flags.GetString("toclist")
	orderName, _ := flags.GetString("order")

	if level < 0 || level > 9 {
		return packOptions{}, fmt.Errorf("--level must be between 0 and 9, got %d", level)
	}
	order, err := epub.OrderByName(orderName)
	if err != nil {
		return packOptions{}, fmt.Errorf("--order: %w", err)
	}

	opts := packOptions{
		Dir:          args[0],
		OutputPath:   defaultOutputPath(args[0]),
		PageListPath: pageList,
		TOCListPath:  tocList,
		Order:        order,
		Meta: epub.Metadata{
			Title:      title,
			Author:     author,
			Identifier: identifier,
			Language:   language,
			Direction:  epub.ParseDirection(direction),
			Subjects:   subjects,
		},
		Pack:   epub.PackOptions{CompressionLevel: level, Logger: logger},
		Logger: logger,
	}
	if len(args) > 1 {
		opts.OutputPath = args[1]
	}
	return opts, nil
}

func defaultOutputPath(dir string) string {
	return filepath.Clean(dir) + ".epub"
}

func runPack(opts packOptions) error {
	src := epub.Source{Dir: opts.Dir, Order: opts.Order}
	if opts.PageListPath != "" {
		lines, err := epub.ReadListFile(opts.PageListPath)
		if err != nil {
			return err
		}
		src.PageList = lines
	}
	if opts.TOCListPath != "" {
		lines, err := epub.ReadListFile(opts.TOCListPath)
		if err != nil {
			return err
		}
		src.TOCList = lines
	}

	book, err := epub.Build(src, opts.Meta)
	if err != nil {
		return err
	}
	opts.Logger.Info("found pages", "count", len(book.Pages), "dir", opts.Dir)

	p, err := epub.NewPackager(book, opts.Pack)
	if err != nil {
		return err
	}
	if err := p.WriteFile(opts.OutputPath); err != nil {
		return err
	}
	opts.Logger.Info("saved epub", "output", opts.OutputPath, "identifier", book.Identifier)
	return nil
}
