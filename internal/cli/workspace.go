package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/tui"
	"github.com/mrz1836/taskmcp/internal/workspace"
)

// terminalCheck reports whether stdin is attached to a terminal.
// Tests replace it to exercise the non-interactive paths.
//
//nolint:gochecknoglobals // Test seam
var terminalCheck = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // G115: fd fits in int
}

// confirmFunc asks the user to confirm a destructive action.
//
//nolint:gochecknoglobals // Test seam
var confirmFunc = tui.Confirm

// workspaceNameArgs requires n arguments that are all well-formed workspace
// names, so bad input fails before the registry is opened.
func workspaceNameArgs(n int) cobra.PositionalArgs {
	return cobra.MatchAll(cobra.ExactArgs(n), func(_ *cobra.Command, args []string) error {
		for _, name := range args {
			if err := workspace.ValidateName(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// newWorkspaceCmd creates the parent workspace command.
func newWorkspaceCmd(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage isolated task workspaces",
		Long: `Manage workspaces. Each workspace is an independent task dataset; exactly
one is active and every task command runs against it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newWorkspaceListCmd(cc),
		newWorkspaceSwitchCmd(cc),
		newWorkspaceCreateCmd(cc),
		newWorkspaceDeleteCmd(cc),
		newWorkspaceRenameCmd(cc),
		newWorkspaceExportCmd(cc),
		newWorkspaceImportCmd(cc),
	)
	return cmd
}

// AddWorkspaceCommand adds the workspace command tree to the root command.
func AddWorkspaceCommand(parent *cobra.Command, cc *cliContext) {
	parent.AddCommand(newWorkspaceCmd(cc))
}

func newWorkspaceListCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces and mark the active one",
		Args:    cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := svc.Workspaces(cmd.Context())
			if err != nil {
				return err
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				return out.JSON(list)
			}
			out.Table([]string{"NAME", "ACTIVE"}, tui.WorkspaceRows(list))
			return nil
		}),
	}
}

func newWorkspaceSwitchCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <name>",
		Short: "Make a workspace active",
		Args:  workspaceNameArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := svc.SwitchWorkspace(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				return out.JSON(list)
			}
			out.Success(fmt.Sprintf("Active workspace is now '%s'", list.Active))
			return nil
		}),
	}
}

func newWorkspaceCreateCmd(cc *cliContext) *cobra.Command {
	var switchTo bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty workspace",
		Args:  workspaceNameArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			if err := svc.CreateWorkspace(ctx, args[0]); err != nil {
				return err
			}
			if switchTo {
				if _, err := svc.SwitchWorkspace(ctx, args[0]); err != nil {
					return err
				}
			}
			return cc.reportWorkspace(cmd, args[0], fmt.Sprintf("Created workspace '%s'", args[0]))
		}),
	}

	cmd.Flags().BoolVarP(&switchTo, "switch", "s", false, "make the new workspace active")
	return cmd
}

func newWorkspaceDeleteCmd(cc *cliContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a workspace and all of its tasks",
		Long: `Delete a workspace dataset. The active workspace cannot be deleted.

Without --force the command asks for confirmation, which needs a terminal.`,
		Args: workspaceNameArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !force {
				if !terminalCheck() || cc.jsonOutput() {
					return fmt.Errorf("cannot delete workspace '%s': %w", name, errors.ErrNonInteractiveMode)
				}
				ok, err := confirmFunc(
					fmt.Sprintf("Delete workspace '%s'?", name),
					"Every task in the workspace is removed. This cannot be undone.",
				)
				if err != nil {
					return fmt.Errorf("confirmation failed: %w", err)
				}
				if !ok {
					return errors.ErrOperationCanceled
				}
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.DeleteWorkspace(cmd.Context(), name); err != nil {
				return err
			}
			return cc.reportWorkspace(cmd, name, fmt.Sprintf("Deleted workspace '%s'", name))
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}

func newWorkspaceRenameCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a workspace",
		Long:  "Rename a workspace. Renaming the active workspace keeps it active under the new name.",
		Args:  workspaceNameArgs(2),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.RenameWorkspace(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return cc.reportWorkspace(cmd, args[1], fmt.Sprintf("Renamed workspace '%s' to '%s'", args[0], args[1]))
		}),
	}
}

func newWorkspaceExportCmd(cc *cliContext) *cobra.Command {
	var file, format string

	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Write a workspace snapshot as YAML or TOML",
		Long: `Write a snapshot of a workspace (the active one by default) to stdout
or --file. The snapshot can be loaded into a new workspace with 'workspace import'.

The format is YAML unless --format toml is given or --file ends in .toml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			enc, err := snapshotFormat(format, file)
			if err != nil {
				return err
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			snap, err := svc.ExportWorkspace(cmd.Context(), name)
			if err != nil {
				return err
			}
			snap.ExportedAt = snap.ExportedAt.UTC().Truncate(time.Second)

			if file == "" || file == "-" {
				return encodeSnapshot(cmd.OutOrStdout(), enc, snap)
			}

			f, err := os.Create(file) //nolint:gosec // user-chosen output path
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := encodeSnapshot(f, enc, snap); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close export file: %w", err)
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				return out.JSON(map[string]any{"workspace": snap.Workspace, "file": file, "tasks": len(snap.Tasks)})
			}
			out.Success(fmt.Sprintf("Exported %d task(s) from '%s' to %s", len(snap.Tasks), snap.Workspace, file))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: yaml or toml")
	return cmd
}

func newWorkspaceImportCmd(cc *cliContext) *cobra.Command {
	var name, format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a workspace from a snapshot file",
		Long: `Create a new workspace from a snapshot written by 'workspace export'.
The workspace is named after the snapshot unless --name is given. Files
ending in .toml are read as TOML, everything else as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			dec, err := snapshotFormat(format, args[0])
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0]) //nolint:gosec // user-supplied input file
				if err != nil {
					return fmt.Errorf("failed to open snapshot: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			snap, err := decodeSnapshot(r, dec)
			if err != nil {
				return err
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.ImportWorkspace(cmd.Context(), name, snap); err != nil {
				return err
			}

			target := name
			if target == "" {
				target = snap.Workspace
			}
			return cc.reportWorkspace(cmd, target, fmt.Sprintf("Imported %d task(s) into workspace '%s'", len(snap.Tasks), target))
		}),
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "workspace name (default: the snapshot's name)")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: yaml or toml (default from extension)")
	return cmd
}

// reportWorkspace prints the workspace name as JSON or a success message.
func (cc *cliContext) reportWorkspace(cmd *cobra.Command, name, msg string) error {
	out := cc.output(cmd.OutOrStdout())
	if cc.jsonOutput() {
		return out.JSON(map[string]any{"success": true, "workspace": name})
	}
	out.Success(msg)
	return nil
}
