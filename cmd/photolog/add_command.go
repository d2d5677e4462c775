package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"photolog/internal/config"
	"photolog/internal/ingest"
	"photolog/internal/ipc"
	"photolog/internal/queueaccess"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var tags []string
	var skip []string
	var name string

	cmd := &cobra.Command{
		Use:   "add <file-or-directory>...",
		Short: "Queue pictures and videos for upload",
		Long: "Copies each file into the upload directory and queues it. Directories are\n" +
			"scanned one level deep: images first, then raw files, then videos.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			paths, err := expandUploadArgs(cfg.Files, args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no uploadable files found")
			}
			if strings.TrimSpace(name) != "" && len(paths) > 1 {
				return errors.New("--name applies to a single file only")
			}

			return ctx.withQueue(func(access queueaccess.Access) error {
				out := cmd.OutOrStdout()
				queued := make([]ipc.AddFileResponse, 0, len(paths))
				for _, path := range paths {
					resp, err := access.AddFile(cmd.Context(), ingest.Request{Path: path, Name: name, Tags: tags, Skip: skip})
					if err != nil {
						return fmt.Errorf("queue %s: %w", filepath.Base(path), err)
					}
					queued = append(queued, resp)
					if !ctx.JSONMode() {
						fmt.Fprintf(out, "Queued %s as %s (%s, key %s)\n", filepath.Base(path), resp.Filename, resp.Format, shortKey(resp.Key))
					}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, queued)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Tags to attach (comma separated or repeated)")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Pipeline steps to skip, e.g. flickr")
	cmd.Flags().StringVar(&name, "name", "", "Original filename to record instead of the source name")
	return cmd
}

// expandUploadArgs resolves files as given and directories through
// ingest.PlanDirectory.
func expandUploadArgs(files config.Files, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("file does not exist: %s", abs)
			}
			return nil, fmt.Errorf("inspect %s: %w", abs, err)
		}
		if !info.IsDir() {
			paths = append(paths, abs)
			continue
		}
		planned, err := ingest.PlanDirectory(files, abs)
		if err != nil {
			return nil, err
		}
		paths = append(paths, planned...)
	}
	return paths, nil
}
