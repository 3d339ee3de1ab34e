package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ngrash/tzbundle/tzdb/ianadist"
)

func fetchCmd() *cobra.Command {
	var (
		out      string
		etagPath string
	)
	c := &cobra.Command{
		Use:   "fetch",
		Short: "Download the latest tzdata archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if etagPath == "" {
				etagPath = out + ".etag"
			}
			etag, err := readEtag(etagPath, out)
			if err != nil {
				return err
			}

			r, newEtag, err := client.Download(cmd.Context(), ianadist.LatestArchive, etag)
			if err != nil {
				return err
			}
			if r == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", out)
				return nil
			}
			defer r.Close()
			if err := writeFile(out, r); err != nil {
				return err
			}
			if newEtag != "" {
				if err := os.WriteFile(etagPath, []byte(newEtag+"\n"), 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s\n", out)
			return nil
		},
	}
	c.Flags().StringVarP(&out, "out", "o", ianadist.LatestArchive, "archive file to write")
	c.Flags().StringVar(&etagPath, "etag-file", "", "file caching the ETag of the archive (default <out>.etag)")
	return c
}

// readEtag returns the cached ETag, or "" if there is none or the archive
// it describes is gone.
func readEtag(etagPath, archive string) (string, error) {
	if _, err := os.Stat(archive); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	b, err := os.ReadFile(etagPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func writeFile(path string, r io.Reader) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
