package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/superhq-ai/neko/internal/cron"
)

// CronManageTool lets the agent self-manage its own scheduled jobs,
// sharing jobs.json with the scheduler (spec.md §9 SUPPLEMENTED FEATURES;
// grounded on original_source/src/tools/cron_manage.rs).
type CronManageTool struct{}

func (CronManageTool) Name() string { return "cron_manage" }
func (CronManageTool) Description() string {
	return "Manage scheduled cron jobs. Actions: add (create a recurring or one-shot job), list (show all jobs), edit (modify a job), remove (delete a job). Jobs run their prompt through the agent on schedule. Results are automatically delivered back to the current channel unless 'announce' overrides it."
}

func (CronManageTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"action": map[string]any{
			"type":        "string",
			"enum":        []string{"add", "list", "edit", "remove"},
			"description": "The action to perform",
		},
		"prompt": map[string]any{
			"type":        "string",
			"description": "(add) The prompt the agent will execute on each run",
		},
		"schedule": map[string]any{
			"type":        "string",
			"description": "(add/edit) Cron expression with 6 fields: 'sec min hour day month weekday' (e.g. '0 0 9 * * *' for daily at 9am)",
		},
		"at": map[string]any{
			"type":        "string",
			"description": "(add) One-shot datetime in 'YYYY-MM-DD HH:MM' format (local time). Mutually exclusive with schedule.",
		},
		"name": map[string]any{
			"type":        "string",
			"description": "(add/edit) Human-readable label for the job",
		},
		"announce": map[string]any{
			"type":        "string",
			"description": "(add/edit) Deliver results to channel:recipient_id (e.g. 'telegram:123456'). Use 'none' to clear.",
		},
		"id": map[string]any{
			"type":        "string",
			"description": "(edit/remove) Job ID or name to target",
		},
		"enabled": map[string]any{
			"type":        "boolean",
			"description": "(edit) Enable or disable the job",
		},
	}, []string{"action"})
}

func (CronManageTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Action   string `json:"action"`
		Prompt   string `json:"prompt"`
		Schedule string `json:"schedule"`
		At       string `json:"at"`
		Name     string `json:"name"`
		Announce string `json:"announce"`
		ID       string `json:"id"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	switch args.Action {
	case "add":
		return cronAdd(tc, args.Prompt, args.Schedule, args.At, args.Name, args.Announce), nil
	case "list":
		return cronList(tc), nil
	case "edit":
		return cronEdit(tc, args.ID, args.Prompt, args.Schedule, args.Name, args.Announce, args.Enabled), nil
	case "remove":
		return cronRemove(tc, args.ID), nil
	default:
		return Error(fmt.Sprintf("Unknown action '%s'. Use: add, list, edit, remove", args.Action)), nil
	}
}

func cronAdd(tc *Context, prompt, scheduleExpr, at, name, announce string) Result {
	if prompt == "" {
		return Error("'prompt' is required for add")
	}

	var schedule cron.Schedule
	switch {
	case scheduleExpr != "" && at != "":
		return Error("Specify either 'schedule' or 'at', not both")
	case scheduleExpr != "":
		if err := cron.ValidateExpr(scheduleExpr); err != nil {
			return Error(err.Error())
		}
		schedule = cron.Schedule{Kind: cron.ScheduleCron, Expr: scheduleExpr}
	case at != "":
		dt, err := cron.ParseDatetime(at)
		if err != nil {
			return Error(err.Error())
		}
		schedule = cron.Schedule{Kind: cron.ScheduleAt, Datetime: dt}
	default:
		return Error("Must specify 'schedule' (cron expr) or 'at' (datetime)")
	}

	var target *cron.AnnounceTarget
	switch {
	case announce == "none":
		target = nil
	case announce != "":
		a, err := cron.ParseAnnounce(announce)
		if err != nil {
			return Error(err.Error())
		}
		target = &a
	case tc.Channel != nil:
		target = &cron.AnnounceTarget{Channel: tc.Channel.Channel, RecipientID: tc.Channel.RecipientID}
	}

	job := cron.Job{
		ID:        cron.NewJobID(),
		Name:      name,
		Prompt:    prompt,
		Schedule:  schedule,
		Announce:  target,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}

	jobs, err := cron.LoadJobs(tc.Workspace)
	if err != nil {
		return Error(fmt.Sprintf("Failed to load jobs: %s", err))
	}
	jobs = append(jobs, job)
	if err := cron.SaveJobs(tc.Workspace, jobs); err != nil {
		return Error(fmt.Sprintf("Failed to save jobs: %s", err))
	}

	return Success(fmt.Sprintf("Created cron job '%s' (id: %s). It will be picked up by the scheduler within 15 seconds.", job.Label(), job.ID))
}

func cronList(tc *Context) Result {
	jobs, err := cron.LoadJobs(tc.Workspace)
	if err != nil {
		return Error(fmt.Sprintf("Failed to load jobs: %s", err))
	}
	if len(jobs) == 0 {
		return Success("No cron jobs configured.")
	}

	var lines []string
	for _, j := range jobs {
		status := "disabled"
		if j.Enabled {
			status = "enabled"
		}
		var sched string
		if j.Schedule.Kind == cron.ScheduleCron {
			sched = "cron: " + j.Schedule.Expr
		} else {
			sched = "at: " + j.Schedule.Datetime.Local().Format("2006-01-02 15:04")
		}
		announce := "none"
		if j.Announce != nil {
			announce = fmt.Sprintf("%s:%s", j.Announce.Channel, j.Announce.RecipientID)
		}
		lines = append(lines, fmt.Sprintf("- %s | %s | %s | %s | announce: %s | prompt: %s",
			j.ID, labelOrDash(j.Name), status, sched, announce, cron.Truncate(j.Prompt, 60)))
	}
	return Success(strings.Join(lines, "\n"))
}

func labelOrDash(name string) string {
	if name == "" {
		return "-"
	}
	return name
}

func cronEdit(tc *Context, idOrName, prompt, scheduleExpr, name, announce string, enabled *bool) Result {
	if idOrName == "" {
		return Error("'id' is required for edit")
	}
	jobs, err := cron.LoadJobs(tc.Workspace)
	if err != nil {
		return Error(fmt.Sprintf("Failed to load jobs: %s", err))
	}
	idx, ok := cron.FindJob(jobs, idOrName)
	if !ok {
		return Error(fmt.Sprintf("Job '%s' not found", idOrName))
	}

	if prompt != "" {
		jobs[idx].Prompt = prompt
	}
	if scheduleExpr != "" {
		if err := cron.ValidateExpr(scheduleExpr); err != nil {
			return Error(err.Error())
		}
		jobs[idx].Schedule = cron.Schedule{Kind: cron.ScheduleCron, Expr: scheduleExpr}
	}
	if name != "" {
		jobs[idx].Name = name
	}
	if enabled != nil {
		jobs[idx].Enabled = *enabled
		if *enabled {
			jobs[idx].Retry = cron.RetryState{}
		}
	}
	if announce != "" {
		if announce == "none" {
			jobs[idx].Announce = nil
		} else {
			target, err := cron.ParseAnnounce(announce)
			if err != nil {
				return Error(err.Error())
			}
			jobs[idx].Announce = &target
		}
	}

	label := jobs[idx].Label()
	if err := cron.SaveJobs(tc.Workspace, jobs); err != nil {
		return Error(fmt.Sprintf("Failed to save jobs: %s", err))
	}
	return Success(fmt.Sprintf("Updated job '%s'.", label))
}

func cronRemove(tc *Context, idOrName string) Result {
	if idOrName == "" {
		return Error("'id' is required for remove")
	}
	jobs, err := cron.LoadJobs(tc.Workspace)
	if err != nil {
		return Error(fmt.Sprintf("Failed to load jobs: %s", err))
	}
	idx, ok := cron.FindJob(jobs, idOrName)
	if !ok {
		return Error(fmt.Sprintf("Job '%s' not found", idOrName))
	}
	label := jobs[idx].Label()
	jobs = append(jobs[:idx], jobs[idx+1:]...)
	if err := cron.SaveJobs(tc.Workspace, jobs); err != nil {
		return Error(fmt.Sprintf("Failed to save jobs: %s", err))
	}
	return Success(fmt.Sprintf("Removed job '%s'.", label))
}
