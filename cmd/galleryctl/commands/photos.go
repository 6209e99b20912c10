package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var captureFile string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List photos, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := openGallery(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		photos := a.Manager().Photos()
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), photos)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tFILEPATH")
		for _, p := range photos {
			fmt.Fprintf(tw, "%s\t%s\n", p.BlobName(), p.Filepath)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d photo(s)\n", len(photos))
		return nil
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Save an image file as a new photo",
	Long: `Save an image file as a new photo.

On native galleries the file is copied into the blob store as is. On browser
galleries its bytes are stored base64 encoded, as an uploaded capture would be.

Examples:
  galleryctl capture --file ./IMG_0001.jpg
  galleryctl --platform browser capture --file ./IMG_0001.jpg --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureFile == "" {
			return errors.New("--file is required")
		}
		a, closeFn, err := openGallery(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		rec, err := a.CaptureFile(cmd.Context(), captureFile)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), rec)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", rec.Filepath)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <filepath|name>",
	Short: "Delete a photo from the index and blob store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := openGallery(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		rec, ok := a.Manager().Lookup(args[0])
		if !ok {
			return fmt.Errorf("photo %s not found", args[0])
		}
		if err := a.Manager().Delete(cmd.Context(), rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", rec.Filepath)
		return nil
	},
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List blobs no indexed photo refers to",
	Long: `List blobs no indexed photo refers to.

Orphans are left behind when a delete removed a photo from the index but its
blob could not be removed. This command only reports them.

The opposite case, an index entry whose blob is gone, stops a browser gallery
from loading at all. Use prune to drop such entries.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := openGallery(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		orphans, err := a.Manager().Orphans(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			if orphans == nil {
				orphans = []string{}
			}
			return printJSON(cmd.OutOrStdout(), orphans)
		}
		for _, name := range orphans {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop index entries whose blob is missing",
	Long: `Drop index entries whose blob is missing, then load the gallery.

A browser gallery refuses to load while any indexed photo has lost its blob,
which also blocks every other command. prune works without a prior load and
prints the filepath of each entry it removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		removed, err := a.Manager().Prune(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			if removed == nil {
				removed = []string{}
			}
			return printJSON(cmd.OutOrStdout(), removed)
		}
		for _, p := range removed {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d index entries, %d photo(s) kept\n", len(removed), len(a.Manager().Photos()))
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureFile, "file", "f", "", "image file to save (required)")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
