package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaborage/taskclient/app"
	"github.com/gaborage/taskclient/tasks"
)

// maxConcurrentGets bounds parallel requests issued by get.
const maxConcurrentGets = 4

// ListOptions holds flags for the list command.
type ListOptions struct {
	Completed bool
	Limit     int
	Offset    int
}

func newListCommand(s *session) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Example: `  taskctl list
  taskctl list --completed=false --limit 20 --offset 40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := tasks.ListParams{}
			if cmd.Flags().Changed("completed") {
				params.Completed = &opts.Completed
			}
			if cmd.Flags().Changed("limit") {
				params.Limit = &opts.Limit
			}
			if cmd.Flags().Changed("offset") {
				params.Offset = &opts.Offset
			}

			return s.run(cmd, func(ctx context.Context, a *app.App) error {
				page, err := a.Tasks().ListTasksPage(ctx, params)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), page)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Completed, "completed", false, "Only tasks with this completion state")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of tasks to return")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of tasks to skip")

	return cmd
}

func newGetCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id> [id...]",
		Short: "Show one or more tasks",
		Long:  "Fetches tasks concurrently. Output order follows the arguments; any failure aborts the rest.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App) error {
				found, err := getTasks(ctx, a.Tasks(), args)
				if err != nil {
					return err
				}
				if len(found) == 1 {
					return writeJSON(cmd.OutOrStdout(), found[0])
				}
				return writeJSON(cmd.OutOrStdout(), found)
			})
		},
	}
}

func getTasks(ctx context.Context, api *tasks.API, ids []string) ([]*tasks.Task, error) {
	found := make([]*tasks.Task, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentGets)
	for i, id := range ids {
		g.Go(func() error {
			task, err := api.GetTask(gctx, id)
			if err != nil {
				return fmt.Errorf("get task %s: %w", id, err)
			}
			found[i] = task
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

// TaskFlags holds the writable task fields shared by create and update.
type TaskFlags struct {
	Title       string
	Description string
	Completed   bool
}

func (f *TaskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Title, "title", "t", "", "Task title")
	cmd.Flags().StringVarP(&f.Description, "description", "d", "", "Task description")
	cmd.Flags().BoolVar(&f.Completed, "completed", false, "Completion state")
}

func newCreateCommand(s *session) *cobra.Command {
	flags := &TaskFlags{}

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a task",
		Example: `  taskctl create --title "Write report" --description "Q3 numbers"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := tasks.CreateInput{Title: flags.Title}
			if cmd.Flags().Changed("description") {
				in.Description = &flags.Description
			}
			if cmd.Flags().Changed("completed") {
				in.Completed = &flags.Completed
			}

			return s.run(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tasks().CreateTask(ctx, in)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), task)
			})
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newUpdateCommand(s *session) *cobra.Command {
	flags := &TaskFlags{}

	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update fields of a task",
		Long:    "Only flags given on the command line are sent.",
		Example: `  taskctl update 42 --title "Write final report" --completed`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in tasks.UpdateInput
			if cmd.Flags().Changed("title") {
				in.Title = &flags.Title
			}
			if cmd.Flags().Changed("description") {
				in.Description = &flags.Description
			}
			if cmd.Flags().Changed("completed") {
				in.Completed = &flags.Completed
			}

			return s.run(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tasks().UpdateTask(ctx, args[0], in)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), task)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Tasks().DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
				return err
			})
		},
	}
}

func newToggleCommand(s *session) *cobra.Command {
	var completed bool

	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Set the completion state of a task",
		Example: `  taskctl toggle 42
  taskctl toggle 42 --completed=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tasks().ToggleTaskCompletion(ctx, args[0], completed)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), task)
			})
		},
	}

	cmd.Flags().BoolVar(&completed, "completed", true, "New completion state")
	return cmd
}
