package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/habitloop/habit-api/internal/config"
	"github.com/habitloop/habit-api/internal/database"
	"github.com/habitloop/habit-api/internal/models"
)

// NewJobsCmd creates the jobs command
func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs [name]",
		Short: "List scheduled reminder jobs",
		Long:  "List every scheduled reminder job registered in the database, or look up a single job by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runJobs(context.Background(), database.NewScheduleRepository(db), cmd.OutOrStdout(), name)
		},
	}

	return cmd
}

// runJobs prints one job when name is set, otherwise every registered
// job.
func runJobs(ctx context.Context, repo database.ScheduleRepositoryInterface, out io.Writer, name string) error {
	if name != "" {
		job, err := repo.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("no scheduled job named %q", name)
			}
			return fmt.Errorf("failed to look up scheduled job: %w", err)
		}
		printJob(out, job)
		return nil
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No scheduled jobs registered")
		return nil
	}

	fmt.Fprintln(out, "Scheduled reminder jobs:")
	for _, job := range jobs {
		printJob(out, job)
	}

	return nil
}

func printJob(out io.Writer, job *models.ScheduledJob) {
	fmt.Fprintf(out, "  - Name: %s\n", job.Name)
	fmt.Fprintf(out, "    Habit: %s\n", job.HabitID)
	fmt.Fprintf(out, "    Spec: %s\n", job.CronSpec())
	fmt.Fprintf(out, "    Timezone: %s\n", job.Timezone)
	fmt.Fprintln(out)
}
