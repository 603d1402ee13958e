package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/entry"
	"github.com/christopherklint97/adotime/internal/hierarchy"
	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/quota"
	"github.com/christopherklint97/adotime/internal/timelog"
	"github.com/christopherklint97/adotime/internal/tui"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "adotime",
	Short:         "Log time against Azure DevOps work items",
	Long:          "adotime logs hours against Azure DevOps work items, enriches each log with its User Story, Feature and Epic, and keeps every day under the timesheet limits.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

var logCmd = &cobra.Command{
	Use:   "log [url|id]",
	Short: "Log time against a work item",
	Long:  "Log time against a work item URL, an id, or the last detected work item. Without --description an interactive form opens.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLog,
}

var editCmd = &cobra.Command{
	Use:   "edit <log-id>",
	Short: "Change the duration or description of a log",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <log-id>",
	Short: "Delete a log",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var dayCmd = &cobra.Command{
	Use:     "day [date]",
	Aliases: []string{"status"},
	Short:   "Show the logs of a day",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runDay,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects of an organization",
	RunE:  runProjects,
}

var workItemsCmd = &cobra.Command{
	Use:   "workitems",
	Short: "List work items assigned to you and your open backlog",
	RunE:  runWorkItems,
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy [url|id]",
	Short: "Show a work item with its User Story, Feature and Epic",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHierarchy,
}

var detectCmd = &cobra.Command{
	Use:   "detect [url]",
	Short: "Remember the work item of a URL for later commands",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/adotime/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	for _, c := range []*cobra.Command{logCmd, hierarchyCmd} {
		c.Flags().String("org", "", "Organization for a bare work item id")
		c.Flags().String("project", "", "Project for a bare work item id")
	}
	logCmd.Flags().Int("hours", 0, "Hours (0-23)")
	logCmd.Flags().Int("minutes", 0, "Minutes (0-59)")
	logCmd.Flags().StringP("description", "m", "", "What you worked on")
	logCmd.Flags().String("date", "", "Day to log against, e.g. 2026-03-02 or yesterday (default today)")
	logCmd.Flags().Bool("pick", false, "Pick the work item from your assigned items and backlog")

	editCmd.Flags().Int("hours", 0, "New hours (0-23)")
	editCmd.Flags().Int("minutes", 0, "New minutes (0-59)")
	editCmd.Flags().StringP("description", "m", "", "New description")
	editCmd.Flags().String("date", "", "Day the log belongs to (default today)")

	deleteCmd.Flags().String("org", "", "Organization that owns the log (default: looked up on --date)")
	deleteCmd.Flags().String("date", "", "Day the log belongs to (default today)")

	dayCmd.Flags().String("org", "", "Only logs of this organization")
	dayCmd.Flags().String("project", "", "Only logs of this project")
	dayCmd.Flags().Int("work-item", 0, "Only logs against this work item")

	projectsCmd.Flags().String("org", "", "Organization (default: the only one configured)")
	workItemsCmd.Flags().String("org", "", "Organization (default: the only one configured)")
	workItemsCmd.Flags().String("project", "", "Project name or id")
	_ = workItemsCmd.MarkFlagRequired("project")

	detectCmd.Flags().Bool("clear", false, "Forget the current work item")

	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(workItemsCmd)
	rootCmd.AddCommand(hierarchyCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(orgsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// describeError adds a hint for the errors a user can act on.
func describeError(err error) string {
	var ce *timelog.ConfigError
	var rej *quota.Rejection
	switch {
	case errors.As(err, &ce):
		return fmt.Sprintf("Error: %v\nRun 'adotime orgs add --name %s' to fill them in.", err, ce.Organization)
	case errors.As(err, &rej):
		return "Rejected: " + rej.Error()
	case errors.Is(err, timelog.ErrNotEditable), errors.Is(err, timelog.ErrNotAssigned):
		return "Rejected: " + err.Error()
	}
	return "Error: " + err.Error()
}

func parseDateFlag(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("date")
	return model.ParseDate(raw, time.Now())
}

func runLog(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	org, _ := cmd.Flags().GetString("org")
	project, _ := cmd.Flags().GetString("project")
	hours, _ := cmd.Flags().GetInt("hours")
	minutes, _ := cmd.Flags().GetInt("minutes")
	description, _ := cmd.Flags().GetString("description")
	pick, _ := cmd.Flags().GetBool("pick")

	day, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	var ref ado.Ref
	if pick {
		ref, err = pickWorkItem(cmd, a, org, project)
		if err != nil || ref.ID == 0 {
			return err
		}
	} else {
		ref, err = a.workItemRef(args, org, project)
		if err != nil {
			return err
		}
	}

	draft := entry.Draft{
		Organization: ref.Organization,
		Project:      ref.Project,
		WorkItemID:   ref.ID,
		Description:  strings.TrimSpace(description),
		Hours:        hours,
		Minutes:      minutes,
		LogDate:      day,
	}

	if draft.Description != "" {
		id, err := a.svc.Add(ctx, draft)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Logged %s on #%d for %s", model.FormatDuration(hours, minutes), ref.ID, model.FormatDay(day))
		if !id.IsZero() {
			msg += fmt.Sprintf(" (log %s)", id)
		}
		fmt.Println(msg)
		return nil
	}

	return runLogForm(cmd, a, draft)
}

func runLogForm(cmd *cobra.Command, a *app, draft entry.Draft) error {
	if !interactive() {
		return errors.New("stdin is not a terminal; pass --hours, --minutes and --description")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	ref := ado.Ref{Organization: draft.Organization, Project: draft.Project, ID: draft.WorkItemID}
	header := tui.Header{Title: fmt.Sprintf("#%d", ref.ID)}

	res, err := a.svc.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if !res.Details.IsZero() {
		header.Title = fmt.Sprintf("#%d %s", res.Details.ID, res.Details.Title)
		draft.Title = res.Details.Title
		draft.Type = res.Details.Type
	}
	header.Context = append(header.Context, hierarchyLines(res.Hierarchy)...)

	if logged, err := a.svc.ListDay(ctx, draft.LogDate, timelog.Filter{}); err == nil {
		remaining := quota.MaxDayMinutes - logged.TotalMinutes
		header.Context = append(header.Context, fmt.Sprintf("%s: %s logged, %s left",
			model.FormatDay(draft.LogDate),
			model.FormatDuration(0, logged.TotalMinutes),
			model.FormatDuration(0, max(remaining, 0))))
	}

	submit := func(ctx context.Context, hours, minutes int, description string) (model.LogID, error) {
		d := draft
		d.Hours, d.Minutes, d.Description = hours, minutes, description
		return a.svc.Add(ctx, d)
	}

	form := tui.NewApp(header, tui.Values{Hours: draft.Hours, Minutes: draft.Minutes}, submit)
	if _, err := tea.NewProgram(form).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	if result := form.GetResult(); result == nil || result.Canceled {
		fmt.Println("Nothing logged.")
	}
	return nil
}

func pickWorkItem(cmd *cobra.Command, a *app, org, project string) (ado.Ref, error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	org, err := a.defaultOrganization(ctx, org)
	if err != nil {
		return ado.Ref{}, err
	}
	if project == "" {
		if cur, ok, _ := a.db.CurrentWorkItem(); ok && cur.Organization == org {
			project = cur.Project
		}
	}
	if project == "" {
		return ado.Ref{}, errors.New("pass --project to pick a work item")
	}

	search, err := a.svc.SearchWorkItems(ctx, org, project)
	if err != nil {
		return ado.Ref{}, fmt.Errorf("searching work items: %w", err)
	}
	items := pickerItems(search)
	if len(items) == 0 {
		return ado.Ref{}, errors.New("no work items assigned to you in " + project)
	}

	if !interactive() {
		return ado.Ref{}, errors.New("stdin is not a terminal; pass the work item id instead of --pick")
	}
	picker := tui.NewPickerApp(items)
	if _, err := tea.NewProgram(picker).Run(); err != nil {
		return ado.Ref{}, fmt.Errorf("running TUI: %w", err)
	}
	result := picker.GetResult()
	if result == nil || result.Canceled {
		fmt.Println("Nothing picked.")
		return ado.Ref{}, nil
	}
	return ado.Ref{Organization: org, Project: project, ID: result.Item.ID}, nil
}

// pickerItems lists assigned items first, then backlog items not already shown.
func pickerItems(s ado.Search) []tui.PickerItem {
	seen := make(map[int]bool)
	var items []tui.PickerItem
	add := func(group string, wis []ado.WorkItem) {
		for _, wi := range wis {
			if seen[wi.ID] {
				continue
			}
			seen[wi.ID] = true
			items = append(items, tui.PickerItem{
				ID:    wi.ID,
				Title: wi.Title(),
				Type:  wi.Type(),
				State: wi.Field(ado.FieldState),
				Group: group,
			})
		}
	}
	add("assigned", s.Assigned)
	add("backlog", s.Backlog)
	return items
}

func hierarchyLines(h hierarchy.Hierarchy) []string {
	var lines []string
	for _, b := range []struct {
		label string
		a     *hierarchy.Ancestor
	}{
		{"Epic", h.Epic},
		{"Feature", h.Feature},
		{"User Story", h.UserStory},
	} {
		if b.a != nil {
			lines = append(lines, fmt.Sprintf("%-10s #%d %s", b.label, b.a.ID, b.a.Title))
		}
	}
	return lines
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := model.ParseLogID(args[0])
	if err != nil {
		return err
	}
	day, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	// Unset flags keep the current values.
	logged, err := a.svc.ListDay(ctx, day, timelog.Filter{})
	if err != nil {
		return err
	}
	var current *model.TimeLogEntry
	for i := range logged.Entries {
		if logged.Entries[i].LogID == id {
			current = &logged.Entries[i]
		}
	}
	if current == nil {
		return fmt.Errorf("%w: %s on %s", timelog.ErrLogNotFound, id, model.FormatDay(day))
	}

	hours, minutes, description := current.Hours, current.Minutes, current.Description
	if cmd.Flags().Changed("hours") {
		hours, _ = cmd.Flags().GetInt("hours")
	}
	if cmd.Flags().Changed("minutes") {
		minutes, _ = cmd.Flags().GetInt("minutes")
	}
	if cmd.Flags().Changed("description") {
		description, _ = cmd.Flags().GetString("description")
	}

	if err := a.svc.Edit(ctx, day, id, hours, minutes, description); err != nil {
		return err
	}
	fmt.Printf("Updated log %s: %s  %s\n", id, model.FormatDuration(hours, minutes), description)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := model.ParseLogID(args[0])
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	org, _ := cmd.Flags().GetString("org")
	if org == "" {
		day, err := parseDateFlag(cmd)
		if err != nil {
			return err
		}
		logged, err := a.svc.ListDay(ctx, day, timelog.Filter{})
		if err != nil {
			return err
		}
		for _, e := range logged.Entries {
			if e.LogID == id {
				org = e.Organization
			}
		}
		if org == "" {
			return fmt.Errorf("%w: %s on %s, pass --org", timelog.ErrLogNotFound, id, model.FormatDay(day))
		}
	}

	if err := a.svc.Delete(ctx, org, id); err != nil {
		return err
	}
	fmt.Printf("Deleted log %s\n", id)
	return nil
}

func runDay(cmd *cobra.Command, args []string) error {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	}
	now := time.Now()
	day, err := model.ParseDate(raw, now)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var f timelog.Filter
	f.Organization, _ = cmd.Flags().GetString("org")
	f.Project, _ = cmd.Flags().GetString("project")
	f.WorkItemID, _ = cmd.Flags().GetInt("work-item")

	logged, err := a.svc.ListDay(ctx, day, f)
	if err != nil {
		return err
	}

	if len(logged.Entries) == 0 {
		fmt.Printf("No logs on %s.\n", model.FormatDay(day))
		return nil
	}

	fmt.Printf("Logs on %s:\n\n", model.FormatDay(day))
	for _, e := range logged.Entries {
		lock := " "
		if !e.Editable(now) {
			lock = "*"
		}
		fmt.Printf("  %s %-8s %7s  %-12s #%-6d %-30s  %s\n",
			lock,
			e.LogID,
			model.FormatDuration(e.Hours, e.Minutes),
			e.Organization,
			e.WorkItem.ID,
			truncate(e.WorkItem.Title, 30),
			e.Description,
		)
	}

	left := max(quota.MaxDayMinutes-logged.TotalMinutes, 0)
	fmt.Printf("\nTotal: %s (%d logs)", model.FormatDuration(0, logged.TotalMinutes), len(logged.Entries))
	if f == (timelog.Filter{}) {
		fmt.Printf(", %s left", model.FormatDuration(0, left))
	}
	fmt.Println()
	fmt.Println(tui.DimStyle.Render("* locked, only logs created today or yesterday can be changed"))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func runProjects(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	org, _ := cmd.Flags().GetString("org")
	org, err = a.defaultOrganization(ctx, org)
	if err != nil {
		return err
	}

	projects, err := a.svc.Projects(ctx, org)
	if err != nil {
		return fmt.Errorf("fetching projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	fmt.Printf("Found %d projects in %s:\n\n", len(projects), org)
	for _, p := range projects {
		fmt.Printf("  %s  %s\n", p.ID, p.Name)
	}
	return nil
}

func runWorkItems(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	org, _ := cmd.Flags().GetString("org")
	project, _ := cmd.Flags().GetString("project")
	org, err = a.defaultOrganization(ctx, org)
	if err != nil {
		return err
	}

	search, err := a.svc.SearchWorkItems(ctx, org, project)
	if err != nil {
		return fmt.Errorf("searching work items: %w", err)
	}

	printItems := func(title string, items []ado.WorkItem) {
		fmt.Printf("%s (%d):\n", title, len(items))
		for _, wi := range items {
			fmt.Printf("  #%-6d %-18s %-10s %s\n", wi.ID, wi.Type(), wi.Field(ado.FieldState), wi.Title())
		}
		fmt.Println()
	}
	printItems("Assigned to you", search.Assigned)
	printItems("Open backlog", search.Backlog)
	return nil
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	org, _ := cmd.Flags().GetString("org")
	project, _ := cmd.Flags().GetString("project")
	ref, err := a.workItemRef(args, org, project)
	if err != nil {
		return err
	}

	res, err := a.svc.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if res.Details.IsZero() {
		return fmt.Errorf("work item %d could not be loaded from %s/%s", ref.ID, ref.Organization, ref.Project)
	}

	d := res.Details
	fmt.Printf("#%d %s\n", d.ID, d.Title)
	fmt.Printf("  %s, %s", d.Type, d.State)
	if d.AssignedTo != "" {
		fmt.Printf(", assigned to %s", d.AssignedTo)
	}
	fmt.Println()
	if d.IterationPath != "" {
		fmt.Printf("  Iteration: %s\n", d.IterationPath)
	}
	if d.AreaPath != "" {
		fmt.Printf("  Area:      %s\n", d.AreaPath)
	}
	if d.Tags != "" {
		fmt.Printf("  Tags:      %s\n", d.Tags)
	}

	lines := hierarchyLines(res.Hierarchy)
	if len(lines) == 0 {
		fmt.Println("\nNo User Story, Feature or Epic above this item.")
		return nil
	}
	fmt.Println()
	for _, l := range lines {
		fmt.Println("  " + l)
	}
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if forget, _ := cmd.Flags().GetBool("clear"); forget {
		if err := a.db.ClearCurrentWorkItem(); err != nil {
			return err
		}
		fmt.Println("Current work item cleared.")
		return nil
	}

	if len(args) == 0 {
		cur, ok, err := a.db.CurrentWorkItem()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("No current work item.")
			return nil
		}
		fmt.Printf("Current work item: #%d in %s/%s\n", cur.ID, cur.Organization, cur.Project)
		return nil
	}

	ref, err := ado.ParseWorkItemURL(args[0])
	if err != nil {
		return err
	}
	if err := a.db.SetCurrentWorkItem(ref); err != nil {
		return err
	}
	fmt.Printf("Current work item: #%d in %s/%s\n", ref.ID, ref.Organization, ref.Project)
	return nil
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
