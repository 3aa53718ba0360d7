package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cloudsync"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/storage"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

// --------------------------------------------------------------------------
// sync command
// --------------------------------------------------------------------------

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Cloud sync through the sync server",
	}
	cmd.AddCommand(syncKeyCmd())
	cmd.AddCommand(syncPushCmd())
	cmd.AddCommand(syncPullCmd())
	cmd.AddCommand(syncCheckCmd())
	cmd.AddCommand(syncStatusCmd())
	cmd.AddCommand(syncPrefsCmd())
	cmd.AddCommand(syncWatchCmd())
	return cmd
}

func syncKeyCmd() *cobra.Command {
	var (
		generate bool
		set      string
		forget   bool
	)
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Show, generate or set the sync key shared by your devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				switch {
				case generate:
					set = "spm-" + uuid.NewString()
				case forget:
					return a.store.SetSyncKey(ctx, "")
				}
				set = strings.TrimSpace(set)
				if set != "" {
					if err := validateSyncKey(set); err != nil {
						return err
					}
					if err := a.store.SetSyncKey(ctx, set); err != nil {
						return err
					}
				}
				key, err := a.store.SyncKey(ctx)
				if err != nil {
					return err
				}
				if key == "" {
					return errors.New("no sync key set; use --generate or --set")
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "Generate a new random key")
	cmd.Flags().StringVar(&set, "set", "", "Use this key (copied from another device)")
	cmd.Flags().BoolVar(&forget, "clear", false, "Forget the key")
	cmd.MarkFlagsMutuallyExclusive("generate", "set", "clear")
	return cmd
}

func validateSyncKey(key string) error {
	n := len([]rune(key))
	if n < 8 || n > 200 {
		return fmt.Errorf("sync key must be 8 to 200 characters, got %d", n)
	}
	return nil
}

func syncPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload the current data, replacing the cloud backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				engine := a.syncEngine(nil)
				_, err := engine.Push(ctx)
				printStatus(cmd, engine)
				return err
			})
		},
	}
}

func syncPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Replace local data with the cloud backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				if !confirm(cmd, "Replace all local data with the cloud backup?") {
					return nil
				}
				engine := a.syncEngine(nil)
				err := engine.Pull(ctx)
				printStatus(cmd, engine)
				return err
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func syncCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Pull the cloud backup if it is newer than the last sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				engine := a.syncEngine(func(_ context.Context, remote syncproto.Meta) bool {
					return confirm(cmd, fmt.Sprintf("Cloud backup from %s is newer. Replace local data?", remote.ServerUpdatedAtISO))
				})
				action, err := engine.CheckOnLoad(ctx)
				printStatus(cmd, engine)
				if err != nil {
					return err
				}
				logger.Debug("Sync check finished", "action", action)
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Pull without asking")
	return cmd
}

func syncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync key, preferences and cloud backup metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				key, err := a.store.SyncKey(ctx)
				if err != nil {
					return err
				}
				last, err := a.store.LastSyncedAt(ctx)
				if err != nil {
					return err
				}
				prefs, err := a.store.SyncPrefs(ctx)
				if err != nil {
					return err
				}

				out := struct {
					Server       string          `json:"server"`
					KeySet       bool            `json:"keySet"`
					LastSyncedAt string          `json:"lastSyncedAt,omitempty"`
					AutoUpload   bool            `json:"autoUpload"`
					AutoDownload bool            `json:"autoDownload"`
					Remote       *syncproto.Meta `json:"remote,omitempty"`
					RemoteError  string          `json:"remoteError,omitempty"`
				}{
					Server:       a.cfg.SyncServerURL,
					KeySet:       key != "",
					LastSyncedAt: last,
					AutoUpload:   prefs.AutoUpload,
					AutoDownload: prefs.AutoDownload,
				}
				if key != "" {
					meta, err := a.client.GetMeta(ctx, key)
					if err != nil {
						out.RemoteError = err.Error()
					} else {
						out.Remote = &meta
					}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func syncPrefsCmd() *cobra.Command {
	var upload, download bool
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change automatic upload and download",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				prefs, err := a.store.SyncPrefs(ctx)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("auto-upload") {
					prefs.AutoUpload = upload
				}
				if cmd.Flags().Changed("auto-download") {
					prefs.AutoDownload = download
				}
				if err := a.store.SetSyncPrefs(ctx, prefs); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), struct {
					AutoUpload   bool `json:"autoUpload"`
					AutoDownload bool `json:"autoDownload"`
				}{prefs.AutoUpload, prefs.AutoDownload})
			})
		},
	}
	cmd.Flags().BoolVar(&upload, "auto-upload", false, "Upload after local changes")
	cmd.Flags().BoolVar(&download, "auto-download", false, "Periodically pull newer cloud backups")
	return cmd
}

func syncWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Check once, then keep syncing until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				prefs, err := a.store.SyncPrefs(ctx)
				if err != nil {
					return err
				}
				if prefs == (storage.SyncPrefs{}) {
					fmt.Fprintln(cmd.ErrOrStderr(), "auto upload and download are both off; see 'spm sync prefs'")
				}
				engine := a.syncEngine(nil)
				if _, err := engine.CheckOnLoad(ctx); err != nil {
					printStatus(cmd, engine)
				}
				err = engine.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func printStatus(cmd *cobra.Command, engine *cloudsync.Engine) {
	st, ok := engine.Status()
	if !ok {
		return
	}
	w := cmd.OutOrStdout()
	if !st.OK {
		w = cmd.ErrOrStderr()
	}
	fmt.Fprintln(w, st.Text)
}

// --------------------------------------------------------------------------
// recovery command
// --------------------------------------------------------------------------

func recoveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Move data between devices with a recovery code",
	}

	var outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Print a recovery code for all season passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				code, err := a.syncEngine(nil).ExportCode()
				if err != nil {
					return err
				}
				if outPath == "" {
					fmt.Fprintln(cmd.OutOrStdout(), code)
					return nil
				}
				return os.WriteFile(outPath, []byte(code+"\n"), 0o600)
			})
		},
	}
	export.Flags().StringVarP(&outPath, "out", "o", "", "Write the code to a file")

	importCmd := &cobra.Command{
		Use:   "import <code|file|->",
		Short: "Replace local data from a recovery code, backup JSON or file ('-' reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); args[0] == "-" && !yes {
				return errors.New("--yes is required when the code is read from stdin")
			}
			code, err := readCode(cmd, args[0])
			if err != nil {
				return err
			}
			return runClient(func(ctx context.Context, a *app) error {
				if !confirm(cmd, "Replace all local data with this recovery code?") {
					return nil
				}
				engine := a.syncEngine(nil)
				d, err := engine.ImportCode(ctx, code)
				printStatus(cmd, engine)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d season pass(es)\n", len(d.SeasonPasses))
				return nil
			})
		},
	}
	importCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(export, importCmd)
	return cmd
}

// readCode resolves the import argument: stdin, a file path, or the code
// itself.
func readCode(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		raw, err := os.ReadFile(arg)
		return string(raw), err
	}
	return arg, nil
}
