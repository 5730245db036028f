package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/client"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/spf13/cobra"
)

// errNoActiveTask is returned when a command defaults to the Active task
// and there is none.
var errNoActiveTask = errors.New("no active task")

func (c *cli) listCmd() *cobra.Command {
	var scope, output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			parsed, err := domain.ParseScope(scope)
			if err != nil {
				return err
			}
			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			tasks, err := api.ListTasks(cmd.Context(), parsed)
			if err != nil {
				return fmt.Errorf("failed to fetch tasks: %w", err)
			}
			return writeTasks(cmd.OutOrStdout(), output, tasks)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", string(domain.ScopeActive), "all, active or archived")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "table, json or yaml")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	var (
		minutes   int
		imagePath string
		imageURL  string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task; it starts Active when no other task is",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if imagePath != "" {
				uploaded, err := uploadFile(ctx, api, imagePath)
				if err != nil {
					return err
				}
				imageURL = uploaded.ImageURL
			}

			task, err := api.CreateTask(ctx, client.CreateTaskParams{
				Title:        strings.Join(args, " "),
				EstMinutes:   minutes,
				ImageDataURL: imageURL,
			})
			if err != nil {
				return fmt.Errorf("failed to add task: %w", err)
			}
			return writeTask(cmd.OutOrStdout(), output, task)
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "estimate in minutes (default 25)")
	cmd.Flags().StringVar(&imagePath, "image", "", "upload this image file as the task icon")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "icon URL or data URL")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "table, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("image", "image-url")
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var (
		title      string
		minutes    int
		status     string
		imageURL   string
		clearImage bool
		remaining  int
		output     string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			flags := cmd.Flags()
			var update client.TaskUpdate
			if flags.Changed("title") {
				update.Title = &title
			}
			if flags.Changed("minutes") {
				update.EstMinutes = &minutes
			}
			if flags.Changed("status") {
				s, err := domain.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				update.Status = &s
				if s == domain.TaskStatusActive {
					now := time.Now().UTC()
					update.TimerStartedAt = &now
				}
			}
			if flags.Changed("image-url") {
				update.ImageDataURL = &imageURL
			}
			update.ClearImage = clearImage
			if flags.Changed("remaining") {
				update.RemainingSeconds = &remaining
			}

			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), api, args[0])
			if err != nil {
				return err
			}
			task, err := api.UpdateTask(cmd.Context(), id, update)
			if err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}
			return writeTask(cmd.OutOrStdout(), output, task)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "new estimate in minutes")
	cmd.Flags().StringVar(&status, "status", "", "Upcoming, Active, Paused, Completed or Cancelled")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "new icon URL or data URL")
	cmd.Flags().BoolVar(&clearImage, "clear-image", false, "remove the icon")
	cmd.Flags().IntVar(&remaining, "remaining", 0, "remaining seconds on the timer")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "table, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("image-url", "clear-image")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), api, args[0])
			if err != nil {
				return err
			}
			task, err := api.DeleteTask(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to delete task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", task.Title)
			return nil
		},
	}
}

type finishFunc func(ctx context.Context, api *client.Client, id uuid.UUID) (*client.FinishResult, error)

func finishComplete(ctx context.Context, api *client.Client, id uuid.UUID) (*client.FinishResult, error) {
	return api.CompleteTask(ctx, id)
}

func finishCancel(ctx context.Context, api *client.Client, id uuid.UUID) (*client.FinishResult, error) {
	return api.CancelTask(ctx, id)
}

// finishCmd builds done and cancel. Without an ID they act on the Active task.
func (c *cli) finishCmd(name, short string, finish finishFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			id, err := resolveID(cmd.Context(), api, ref)
			if err != nil {
				return err
			}
			res, err := finish(cmd.Context(), api, id)
			if err != nil {
				return fmt.Errorf("failed to %s task: %w", name, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", res.Task.Status, res.Task.Title)
			if res.Activated != nil {
				fmt.Fprintf(out, "Active: %s (%s)\n", res.Activated.Title, remainingColumn(res.Activated))
			} else {
				fmt.Fprintln(out, "No upcoming tasks.")
			}
			return nil
		},
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an icon image and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			res, err := uploadFile(cmd.Context(), api, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ImageURL)
			return nil
		},
	}
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server and its storage are up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			h, err := api.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("server unhealthy: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (storage: %s, %s)\n",
				h.Message, h.Storage, h.Timestamp.Format(time.RFC3339))
			return nil
		},
	}
}

func uploadFile(ctx context.Context, api *client.Client, path string) (*client.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := api.UploadImage(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	return res, nil
}

// resolveID turns a full ID or a unique ID prefix into a task ID. An empty
// ref selects the Active task.
func resolveID(ctx context.Context, api *client.Client, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}

	tasks, err := api.ListTasks(ctx, domain.ScopeAll)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	if ref == "" {
		for _, t := range tasks {
			if t.Status == domain.TaskStatusActive {
				return t.ID, nil
			}
		}
		return uuid.Nil, errNoActiveTask
	}

	ref = strings.ToLower(ref)
	var match *domain.Task
	for _, t := range tasks {
		if !strings.HasPrefix(t.ID.String(), ref) {
			continue
		}
		if match != nil {
			return uuid.Nil, fmt.Errorf("task id %q is ambiguous", ref)
		}
		match = t
	}
	if match == nil {
		return uuid.Nil, fmt.Errorf("no task with id %q", ref)
	}
	return match.ID, nil
}
