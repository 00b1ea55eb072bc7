package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/meigma/zvfs"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "mkfs",
			Aliases:   []string{"create"},
			Usage:     "Create a new empty image",
			ArgsUsage: "IMAGE",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Usage: "Replace an existing image"},
			},
			Action: runCreate,
		},
		{
			Name:      "gifs",
			Aliases:   []string{"inspect"},
			Usage:     "Show entry counters and image size",
			ArgsUsage: "IMAGE",
			Action:    runInspect,
		},
		{
			Name:      "addfs",
			Aliases:   []string{"add"},
			Usage:     "Add files to an image",
			ArgsUsage: "IMAGE FILE [FILE...]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Usage: "Entry name for a single file (default: base name)"},
				&cli.BoolFlag{Name: "zstd", Usage: "Decompress zstd sources before storing", EnvVars: []string{"ZVFS_ZSTD"}},
				&cli.IntFlag{Name: "jobs", Value: zvfs.DefaultSourceConcurrency, Usage: "Sources read in parallel when adding several files", EnvVars: []string{"ZVFS_JOBS"}},
			},
			Action: runAdd,
		},
		{
			Name:      "getfs",
			Aliases:   []string{"extract"},
			Usage:     "Write an entry to disk",
			ArgsUsage: "IMAGE ENTRY",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Destination path (default: entry name)", TakesFile: true},
			},
			Action: runExtract,
		},
		{
			Name:      "rmfs",
			Aliases:   []string{"remove"},
			Usage:     "Mark an entry as deleted",
			ArgsUsage: "IMAGE ENTRY",
			Action:    runRemove,
		},
		{
			Name:      "lsfs",
			Aliases:   []string{"list"},
			Usage:     "List active entries",
			ArgsUsage: "IMAGE",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "digest", Usage: "Show the sha256 digest of each entry"},
			},
			Action: runList,
		},
		{
			Name:      "catfs",
			Aliases:   []string{"print"},
			Usage:     "Print an entry as UTF-8 text",
			ArgsUsage: "IMAGE ENTRY",
			Action:    runPrint,
		},
		{
			Name:      "dfrgfs",
			Aliases:   []string{"compact"},
			Usage:     "Drop deleted entries and reclaim their space",
			ArgsUsage: "IMAGE",
			Action:    runCompact,
		},
		{
			Name:      "digest",
			Usage:     "Print the sha256 digest of an entry",
			ArgsUsage: "IMAGE ENTRY",
			Action:    runDigest,
		},
	}
}

// checkArgs fails unless c carries between lo and hi positional arguments.
// A negative hi means no upper bound.
func checkArgs(c *cli.Context, lo, hi int) error {
	n := c.NArg()
	if n < lo || (hi >= 0 && n > hi) {
		return fmt.Errorf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func logger(c *cli.Context) *slog.Logger {
	if l, ok := c.App.Metadata["logger"].(*slog.Logger); ok {
		return l
	}
	return nil
}

func options(c *cli.Context) []zvfs.Option {
	return []zvfs.Option{
		zvfs.WithLogger(logger(c)),
		zvfs.WithSourceConcurrency(c.Int("jobs")),
	}
}

func openImage(c *cli.Context) (*zvfs.Image, error) {
	return zvfs.Open(c.Args().First(), options(c)...)
}

func runCreate(c *cli.Context) error {
	if err := checkArgs(c, 1, 1); err != nil {
		return err
	}
	opts := append(options(c), zvfs.WithOverwrite(c.Bool("force")))
	img, err := zvfs.Create(c.Args().First(), opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Created new Virtual Filesystem called %s.\n", img.Path())
	return nil
}

func runInspect(c *cli.Context) error {
	if err := checkArgs(c, 1, 1); err != nil {
		return err
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}
	info, err := img.Stat()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer,
		"The %s filesystem has got %d active entries, %d free entries and %d are marked as deleted. The total size of the filesystem is %d Bytes (%s).\n",
		img.Path(), info.FileCount, info.FreeSlots, info.DeletedFiles, info.Size, humanize.IBytes(uint64(info.Size)), //nolint:gosec // sizes are non-negative
	)
	return nil
}

func runAdd(c *cli.Context) error {
	if err := checkArgs(c, 2, -1); err != nil {
		return err
	}
	files := c.Args().Tail()
	if c.IsSet("name") && len(files) > 1 {
		return fmt.Errorf("--name applies to a single file, got %d", len(files))
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}

	addOpts := []zvfs.AddOption{zvfs.AddWithDecompress(c.Bool("zstd"))}
	if len(files) == 1 {
		if c.IsSet("name") {
			addOpts = append(addOpts, zvfs.AddWithName(c.String("name")))
		}
		err = img.AddFile(files[0], addOpts...)
	} else {
		err = img.AddFiles(c.Context, files, addOpts...)
	}
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(c.App.Writer, "Successfully added file %s to the filesystem %s\n", f, img.Path())
	}
	return nil
}

func runExtract(c *cli.Context) error {
	if err := checkArgs(c, 2, 2); err != nil {
		return err
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}
	entry := c.Args().Get(1)
	dest := c.String("output")
	if dest == "" {
		dest = filepath.Base(entry)
	}
	if err := img.ExtractFile(entry, dest); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Returned file %s from %s to Disk\n", entry, img.Path())
	return nil
}

func runRemove(c *cli.Context) error {
	if err := checkArgs(c, 2, 2); err != nil {
		return err
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}
	entry := c.Args().Get(1)
	if err := img.Remove(entry); err != nil {
		return err
	}
	info, err := img.Stat()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "File %s marked as deleted in filesystem %s. Filesystem %s now has %d files marked as deleted.\n",
		entry, img.Path(), img.Path(), info.DeletedFiles)
	return nil
}

func runList(c *cli.Context) error {
	if err := checkArgs(c, 1, 1); err != nil {
		return err
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for e, err := range img.List() {
		if err != nil {
			return err
		}
		row := fmt.Sprintf("%s\t%d Bytes\t%s", e.Name, e.Size, e.Created.UTC().Format(time.RFC3339))
		if c.Bool("digest") {
			d, err := img.Digest(e.Name)
			if err != nil {
				return err
			}
			row += "\t" + d.String()
		}
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func runPrint(c *cli.Context) error {
	if err := checkArgs(c, 2, 2); err != nil {
		return err
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}
	text, err := img.ReadText(c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, text)
	return nil
}

func runCompact(c *cli.Context) error {
	if err := checkArgs(c, 1, 1); err != nil {
		return err
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}
	res, err := img.Compact()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Defragmented %d files and freed %d bytes of file data.\n", res.Removed, res.ReclaimedBytes)
	return nil
}

func runDigest(c *cli.Context) error {
	if err := checkArgs(c, 2, 2); err != nil {
		return err
	}
	img, err := openImage(c)
	if err != nil {
		return err
	}
	d, err := img.Digest(c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, d)
	return nil
}
