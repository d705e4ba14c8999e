package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/superhq-ai/neko/internal/cron"
)

func cronCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled jobs (spec.md §4.5)",
	}
	c.AddCommand(cronListCmd())
	c.AddCommand(cronAddCmd())
	c.AddCommand(cronEditCmd())
	c.AddCommand(cronRemoveCmd())
	c.AddCommand(cronHistoryCmd())
	return c
}

func withWorkspace(fn func(workspace string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fail(err)
			return
		}
		workspace, err := cfg.WorkspacePath()
		if err != nil {
			fail(err)
			return
		}
		if err := fn(workspace); err != nil {
			fail(err)
		}
	}
}

func cronListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every persisted cron job",
		Run: withWorkspace(func(workspace string) error {
			jobs, err := cron.LoadJobs(workspace)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("no cron jobs")
				return nil
			}
			for _, j := range jobs {
				sched := j.Schedule.Expr
				if j.Schedule.Kind == cron.ScheduleAt {
					sched = "at " + j.Schedule.Datetime.Format(time.RFC3339)
				}
				status := "enabled"
				if !j.Enabled {
					status = "disabled"
				}
				fmt.Printf("%s  %-20s  %-12s  %-30s  %s\n", j.ID, j.Label(), status, sched, j.Prompt)
			}
			return nil
		}),
	}
}

func cronAddCmd() *cobra.Command {
	var (
		prompt, schedule, at, name, announce string
	)
	c := &cobra.Command{
		Use:   "add",
		Short: "Add a new cron or one-shot job",
		Run: withWorkspace(func(workspace string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}

			var sched cron.Schedule
			switch {
			case schedule != "" && at != "":
				return fmt.Errorf("specify either --schedule or --at, not both")
			case schedule != "":
				if err := cron.ValidateExpr(schedule); err != nil {
					return err
				}
				sched = cron.Schedule{Kind: cron.ScheduleCron, Expr: schedule}
			case at != "":
				dt, err := cron.ParseDatetime(at)
				if err != nil {
					return err
				}
				sched = cron.Schedule{Kind: cron.ScheduleAt, Datetime: dt}
			default:
				return fmt.Errorf("specify --schedule (6-field cron expr) or --at (datetime)")
			}

			var target *cron.AnnounceTarget
			if announce != "" {
				a, err := cron.ParseAnnounce(announce)
				if err != nil {
					return err
				}
				target = &a
			}

			job := cron.Job{
				ID:        cron.NewJobID(),
				Name:      name,
				Prompt:    prompt,
				Schedule:  sched,
				Announce:  target,
				Enabled:   true,
				CreatedAt: time.Now().UTC(),
			}

			jobs, err := cron.LoadJobs(workspace)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
			if err := cron.SaveJobs(workspace, jobs); err != nil {
				return err
			}
			fmt.Printf("created cron job %q (id: %s)\n", job.Label(), job.ID)
			return nil
		}),
	}
	c.Flags().StringVar(&prompt, "prompt", "", "prompt the agent runs on each fire")
	c.Flags().StringVar(&schedule, "schedule", "", "6-field cron expression (sec min hour day month weekday)")
	c.Flags().StringVar(&at, "at", "", "one-shot datetime, 'YYYY-MM-DD HH:MM' local time")
	c.Flags().StringVar(&name, "name", "", "human-readable job label")
	c.Flags().StringVar(&announce, "announce", "", "deliver results to channel:recipient_id")
	return c
}

func cronEditCmd() *cobra.Command {
	var (
		id, prompt, schedule, name, announce string
		enable, disable                      bool
	)
	c := &cobra.Command{
		Use:   "edit",
		Short: "Edit an existing cron job by id or name",
		Run: withWorkspace(func(workspace string) error {
			jobs, err := cron.LoadJobs(workspace)
			if err != nil {
				return err
			}
			idx := -1
			for i, j := range jobs {
				if j.ID == id || j.Name == id {
					idx = i
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("no job matching %q", id)
			}

			j := jobs[idx]
			if prompt != "" {
				j.Prompt = prompt
			}
			if schedule != "" {
				if err := cron.ValidateExpr(schedule); err != nil {
					return err
				}
				j.Schedule = cron.Schedule{Kind: cron.ScheduleCron, Expr: schedule}
			}
			if name != "" {
				j.Name = name
			}
			if announce == "none" {
				j.Announce = nil
			} else if announce != "" {
				a, err := cron.ParseAnnounce(announce)
				if err != nil {
					return err
				}
				j.Announce = &a
			}
			if enable {
				j.Enabled = true
			}
			if disable {
				j.Enabled = false
			}
			jobs[idx] = j

			if err := cron.SaveJobs(workspace, jobs); err != nil {
				return err
			}
			fmt.Printf("updated cron job %q (id: %s)\n", j.Label(), j.ID)
			return nil
		}),
	}
	c.Flags().StringVar(&id, "id", "", "job id or name to edit")
	c.Flags().StringVar(&prompt, "prompt", "", "new prompt")
	c.Flags().StringVar(&schedule, "schedule", "", "new 6-field cron expression")
	c.Flags().StringVar(&name, "name", "", "new label")
	c.Flags().StringVar(&announce, "announce", "", "new channel:recipient_id, or 'none' to clear")
	c.Flags().BoolVar(&enable, "enable", false, "enable the job")
	c.Flags().BoolVar(&disable, "disable", false, "disable the job")
	_ = c.MarkFlagRequired("id")
	return c
}

func cronRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a cron job by id or name",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runCronRemove(args[0]); err != nil {
				fail(err)
			}
		},
	}
}

func runCronRemove(id string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return err
	}
	jobs, err := cron.LoadJobs(workspace)
	if err != nil {
		return err
	}
	kept := jobs[:0]
	var removed *cron.Job
	for _, j := range jobs {
		if j.ID == id || j.Name == id {
			job := j
			removed = &job
			continue
		}
		kept = append(kept, j)
	}
	if removed == nil {
		return fmt.Errorf("no job matching %q", id)
	}
	if err := cron.SaveJobs(workspace, kept); err != nil {
		return err
	}
	fmt.Printf("removed cron job %q (id: %s)\n", removed.Label(), removed.ID)
	return nil
}

func cronHistoryCmd() *cobra.Command {
	var lines int
	c := &cobra.Command{
		Use:   "history",
		Short: "Show recent cron run history",
		Run: withWorkspace(func(workspace string) error {
			entries, err := cron.ReadHistory(workspace, lines)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no cron history")
				return nil
			}
			for _, e := range entries {
				status := "ok"
				if !e.Success {
					status = "FAILED: " + e.Error
				}
				fmt.Printf("%s  %-20s  %s\n", e.StartedAt.Format(time.RFC3339), e.JobName, status)
			}
			return nil
		}),
	}
	c.Flags().IntVar(&lines, "lines", 20, "number of history entries to show")
	return c
}
