package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/taskmcp/internal/domain"
	"github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/service"
	"github.com/mrz1836/taskmcp/internal/tree"
	"github.com/mrz1836/taskmcp/internal/tui"
)

// newTaskCmd creates the parent task command.
func newTaskCmd(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Read and edit the task tree of the active workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newTaskListCmd(cc),
		newTaskShowCmd(cc),
		newTaskAddCmd(cc),
		newTaskEditCmd(cc),
		newTaskToggleCmd(cc),
		newTaskRemoveCmd(cc),
		newTaskMoveCmd(cc),
		newTaskReorderCmd(cc),
		newTaskCurrentCmd(cc),
		newTaskSetCurrentCmd(cc),
		newTaskClearCurrentCmd(cc),
		newTaskSearchCmd(cc),
		newTaskDanglingCmd(cc),
		newTaskColorCmd(cc),
	)
	return cmd
}

// AddTaskCommand adds the task command tree to the root command.
func AddTaskCommand(parent *cobra.Command, cc *cliContext) {
	parent.AddCommand(newTaskCmd(cc))
}

func newTaskListCmd(cc *cliContext) *cobra.Command {
	var (
		focus    string
		comments bool
		width    int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the task tree",
		Long: `Show the task tree of the active workspace.

Examples:
  taskmcp task list                 # whole forest
  taskmcp task list --focus 12      # only task 12 and its subtree
  taskmcp task list --focus current # the current task and its subtree
  taskmcp task list -o json         # nested JSON`,
		Args: cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			var forest []*domain.Node
			switch {
			case strings.EqualFold(focus, "current"):
				all, err := svc.Tasks(ctx)
				if err != nil {
					return err
				}
				if n := tree.FindCurrentNode(all); n != nil {
					forest = []*domain.Node{n}
				}
			case focus != "":
				id, err := parseID(focus)
				if err != nil {
					return err
				}
				forest, err = svc.FocusTasks(ctx, id)
				if err != nil {
					return err
				}
			default:
				if forest, err = svc.Tasks(ctx); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if cc.jsonOutput() {
				if forest == nil {
					forest = []*domain.Node{}
				}
				return cc.output(w).JSON(forest)
			}
			if len(forest) == 0 {
				_, _ = fmt.Fprintln(w, "No tasks. Run 'taskmcp task add <title>' to create one.")
				return nil
			}
			return tui.RenderOutline(w, forest, tui.OutlineOptions{Width: width, Comments: comments})
		}),
	}

	cmd.Flags().StringVar(&focus, "focus", "", "show only this task (id or 'current') and its subtree")
	cmd.Flags().BoolVarP(&comments, "comments", "c", false, "show the first line of each task's comments")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "truncate lines to this width (0 = no limit)")
	return cmd
}

func newTaskShowCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cc.jsonOutput() {
				return cc.output(w).JSON(t)
			}
			writeTaskDetail(w, t)
			return nil
		}),
	}
}

// writeTaskDetail prints a task's fields and renders its comments.
func writeTaskDetail(w io.Writer, t domain.Task) {
	tui.CheckNoColor()

	status := "open"
	if t.Done {
		status = "done"
	}
	parent := "root"
	if t.ParentID != nil {
		parent = "#" + strconv.FormatInt(*t.ParentID, 10)
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", tui.StyleBold.Render(fmt.Sprintf("#%d", t.ID)), tui.StyleBold.Render(t.Title))
	_, _ = fmt.Fprintf(w, "  status:   %s\n", status)
	_, _ = fmt.Fprintf(w, "  parent:   %s (position %d)\n", parent, t.Position)
	if t.IsCurrent {
		_, _ = fmt.Fprintln(w, "  current:  yes")
	}
	if t.Layout.Color != "" {
		_, _ = fmt.Fprintf(w, "  color:    %s\n", t.Layout.Color)
	}
	if strings.TrimSpace(t.Comments) != "" {
		_, _ = fmt.Fprintln(w)
		tui.RenderMarkdown(w, t.Comments, tui.DefaultWrapWidth)
	}
}

func newTaskAddCmd(cc *cliContext) *cobra.Command {
	var (
		parent   string
		position int
		color    string
	)

	cmd := &cobra.Command{
		Use:   "add <title>...",
		Short: "Create a task",
		Long: `Create a task at the end of its sibling group, or at --position.

Examples:
  taskmcp task add "Write release notes"
  taskmcp task add --parent 4 Draft intro
  taskmcp task add --parent root --position 0 Urgent
  taskmcp task add --color red Fix the outage`,
		Args: cobra.MinimumNArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			parentID, err := parseParent(parent)
			if err != nil {
				return err
			}
			in := service.CreateInput{Title: strings.Join(args, " "), ParentID: parentID}
			if cmd.Flags().Changed("position") {
				in.Position = &position
			}
			if in.Color, err = parseColor(color); err != nil {
				return err
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			return cc.reportTask(cmd, t, fmt.Sprintf("Created task #%d", t.ID))
		}),
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent task id (default root)")
	cmd.Flags().IntVar(&position, "position", 0, "position among siblings (default last)")
	cmd.Flags().StringVar(&color, "color", "", "display color ("+strings.Join(tui.TaskColorNames(), ", ")+")")
	return cmd
}

func newTaskEditCmd(cc *cliContext) *cobra.Command {
	var title, comments, commentsFile string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or comments",
		Long: `Change a task's title or comments.

Examples:
  taskmcp task edit 4 --title "Ship it"
  taskmcp task edit 4 --comments-file notes.md`,
		Args: cobra.ExactArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var in domain.EditInput
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("comments") {
				in.Comments = &comments
			}
			if commentsFile != "" {
				data, err := os.ReadFile(commentsFile) //nolint:gosec // user-supplied input file
				if err != nil {
					return fmt.Errorf("failed to read comments file: %w", err)
				}
				text := string(data)
				in.Comments = &text
			}
			if in.IsEmpty() {
				return fmt.Errorf("nothing to edit, pass --title or --comments: %w", errors.ErrInvalidArgument)
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.EditTask(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return cc.reportTask(cmd, t, fmt.Sprintf("Updated task #%d", t.ID))
		}),
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&comments, "comments", "c", "", "new comments (markdown)")
	cmd.Flags().StringVar(&commentsFile, "comments-file", "", "read new comments from a file")
	cmd.MarkFlagsMutuallyExclusive("comments", "comments-file")
	return cmd
}

func newTaskToggleCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Flip a task between open and done",
		Args:    cobra.ExactArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.ToggleTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			state := "open"
			if t.Done {
				state = "done"
			}
			return cc.reportTask(cmd, t, fmt.Sprintf("Task #%d is %s", t.ID, state))
		}),
	}
}

func newTaskRemoveCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task and its whole subtree",
		Args:    cobra.ExactArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			removed, err := svc.DeleteTask(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				return out.JSON(map[string]any{"removed": removed})
			}
			out.Success(fmt.Sprintf("Deleted %d task(s)", len(removed)))
			return nil
		}),
	}
}

func newTaskMoveCmd(cc *cliContext) *cobra.Command {
	var (
		parent   string
		after    string
		position int
	)

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move one task",
		Long: `Move one task. Exactly one of --parent, --after or --position is required.

Examples:
  taskmcp task move 7 --parent 3       # last child of task 3
  taskmcp task move 7 --parent root    # last root task
  taskmcp task move 7 --after 5        # right after task 5, same parent as 5
  taskmcp task move 7 --position 0     # first among its current siblings`,
		Args: cobra.ExactArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			var t domain.Task
			switch {
			case cmd.Flags().Changed("after"):
				afterID, perr := parseID(after)
				if perr != nil {
					return perr
				}
				t, err = svc.MoveTaskAfter(ctx, id, afterID)
			case cmd.Flags().Changed("position"):
				t, err = svc.MoveTaskTo(ctx, id, position)
			case cmd.Flags().Changed("parent"):
				parentID, perr := parseParent(parent)
				if perr != nil {
					return perr
				}
				t, err = svc.MoveTaskAsChild(ctx, id, parentID)
			default:
				return fmt.Errorf("move needs --parent, --after or --position: %w", errors.ErrInvalidArgument)
			}
			if err != nil {
				return err
			}
			return cc.reportTask(cmd, t, fmt.Sprintf("Moved task #%d", t.ID))
		}),
	}

	cmd.Flags().StringVar(&parent, "parent", "", "new parent task id, or 'root'")
	cmd.Flags().StringVar(&after, "after", "", "place right after this task")
	cmd.Flags().IntVar(&position, "position", 0, "new position among current siblings")
	cmd.MarkFlagsMutuallyExclusive("parent", "after", "position")
	return cmd
}

func newTaskReorderCmd(cc *cliContext) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Apply a bulk reorder from JSON",
		Long: `Apply a set of placements all-or-nothing. The input is a JSON array of
{"id": 3, "position": 0, "parent_id": null} objects, read from --file or stdin.

Tasks not listed keep their relative order and fill the remaining positions.
If any placement is invalid, nothing changes.`,
		Args: cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file) //nolint:gosec // user-supplied input file
				if err != nil {
					return fmt.Errorf("failed to open reorder file: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			var updates []domain.Reorder
			if err := json.NewDecoder(r).Decode(&updates); err != nil {
				return fmt.Errorf("failed to parse reorder input: %w: %w", errors.ErrInvalidArgument, err)
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			moved, err := svc.ReorderTasks(cmd.Context(), updates)
			if err != nil {
				return err
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				return out.JSON(map[string]any{"moved": moved})
			}
			out.Success(fmt.Sprintf("Reordered %d task(s)", moved))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file with placements ('-' for stdin)")
	return cmd
}

func newTaskCurrentCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current task",
		Args:  cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.CurrentTask(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cc.jsonOutput() {
				return cc.output(w).JSON(map[string]any{"task": t})
			}
			if t == nil {
				_, _ = fmt.Fprintln(w, "No current task.")
				return nil
			}
			writeTaskDetail(w, *t)
			return nil
		}),
	}
}

func newTaskSetCurrentCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-current <id>",
		Short: "Mark a task as the current one",
		Args:  cobra.ExactArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			changed, err := svc.SetCurrentTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			return cc.reportChange(cmd, changed, fmt.Sprintf("Task #%d is now current", id))
		}),
	}
}

func newTaskClearCurrentCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-current",
		Short: "Unmark the current task",
		Args:  cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			changed, err := svc.ClearCurrentTask(cmd.Context())
			if err != nil {
				return err
			}
			return cc.reportChange(cmd, changed, "Current task cleared")
		}),
	}
}

func newTaskSearchCmd(cc *cliContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "search <text>...",
		Short: "Find tasks whose title or comments contain text",
		Args:  cobra.MinimumNArgs(1),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			var hits []domain.SearchHit
			if all {
				if hits, err = svc.SearchAll(cmd.Context(), query); err != nil {
					return err
				}
			} else {
				found, err := svc.SearchTasks(cmd.Context(), query)
				if err != nil {
					return err
				}
				active, err := svc.ActiveWorkspace(cmd.Context())
				if err != nil {
					return err
				}
				hits = make([]domain.SearchHit, 0, len(found))
				for _, t := range found {
					hits = append(hits, domain.SearchHit{Workspace: active, Task: t})
				}
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				return out.JSON(hits)
			}
			if len(hits) == 0 {
				out.Info("No matching tasks.")
				return nil
			}
			out.Table([]string{"WORKSPACE", "ID", "DONE", "TITLE"}, searchRows(hits))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "search every workspace")
	return cmd
}

func searchRows(hits []domain.SearchHit) [][]string {
	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		done := ""
		if h.Task.Done {
			done = "x"
		}
		rows = append(rows, []string{h.Workspace, strconv.FormatInt(h.Task.ID, 10), done, h.Task.Title})
	}
	return rows
}

func newTaskDanglingCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dangling",
		Short: "List tasks whose parent no longer exists",
		Args:  cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			found, err := svc.DanglingTasks(cmd.Context())
			if err != nil {
				return err
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				if found == nil {
					found = []domain.Task{}
				}
				return out.JSON(found)
			}
			if len(found) == 0 {
				out.Info("No dangling tasks.")
				return nil
			}
			rows := make([][]string, 0, len(found))
			for _, t := range found {
				rows = append(rows, []string{strconv.FormatInt(t.ID, 10), strconv.FormatInt(domain.ParentKey(t.ParentID), 10), t.Title})
			}
			out.Table([]string{"ID", "MISSING PARENT", "TITLE"}, rows)
			return nil
		}),
	}
}

func newTaskColorCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "color <id> <color|none>",
		Short: "Set a task's display color",
		Long:  "Set a task's display color. Known colors: " + strings.Join(tui.TaskColorNames(), ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE: cc.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			color, err := parseColor(args[1])
			if err != nil {
				return err
			}

			svc, closeFn, err := cc.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.UpdateLayout(cmd.Context(), id, domain.LayoutPatch{Color: &color})
			if err != nil {
				return err
			}
			return cc.reportTask(cmd, t, fmt.Sprintf("Task #%d color set", t.ID))
		}),
	}
}

// parseColor normalizes a color argument. "none" and "" mean no color.
func parseColor(arg string) (string, error) {
	color := strings.ToLower(strings.TrimSpace(arg))
	if color == "" || color == "none" {
		return "", nil
	}
	if _, ok := tui.TaskColor(color); !ok {
		return "", fmt.Errorf("unknown color '%s': %w", arg, errors.ErrInvalidArgument)
	}
	return color, nil
}

// reportTask prints the task as JSON or a one-line success message.
func (cc *cliContext) reportTask(cmd *cobra.Command, t domain.Task, msg string) error {
	out := cc.output(cmd.OutOrStdout())
	if cc.jsonOutput() {
		return out.JSON(t)
	}
	out.Success(msg)
	return nil
}

// reportChange prints whether a pointer update changed anything.
func (cc *cliContext) reportChange(cmd *cobra.Command, changed bool, msg string) error {
	out := cc.output(cmd.OutOrStdout())
	if cc.jsonOutput() {
		return out.JSON(map[string]any{"changed": changed})
	}
	if !changed {
		out.Info("Nothing changed")
		return nil
	}
	out.Success(msg)
	return nil
}
