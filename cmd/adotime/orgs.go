package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/notify"
	"github.com/christopherklint97/adotime/internal/tui"
)

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "Manage Azure DevOps organizations and their credentials",
}

var orgsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an organization, or update one with --edit",
	Args:  cobra.NoArgs,
	RunE:  runOrgsAdd,
}

var orgsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured organizations",
	RunE:  runOrgsList,
}

var orgsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an organization",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrgsRemove,
}

var orgsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Warn about credentials that expire soon",
	RunE:  runOrgsCheck,
}

func init() {
	orgsAddCmd.Flags().String("name", "", "Organization name as it appears in dev.azure.com URLs")
	orgsAddCmd.Flags().String("credential", "", "Personal access token")
	orgsAddCmd.Flags().String("display-name", "", "Your display name in Azure DevOps")
	orgsAddCmd.Flags().String("expires", "", "Credential expiry date (YYYY-MM-DD)")
	orgsAddCmd.Flags().String("edit", "", "Name of the organization to update")

	orgsCheckCmd.Flags().Bool("notify", false, "Also send a desktop notification")

	orgsCmd.AddCommand(orgsAddCmd)
	orgsCmd.AddCommand(orgsListCmd)
	orgsCmd.AddCommand(orgsRemoveCmd)
	orgsCmd.AddCommand(orgsCheckCmd)
}

func runOrgsAdd(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	editing, _ := cmd.Flags().GetString("edit")

	var org model.Organization
	if editing != "" {
		orgs, err := a.svc.Organizations(ctx)
		if err != nil {
			return err
		}
		existing, ok := model.FindOrganization(orgs, editing)
		if !ok {
			return fmt.Errorf("organization %s not found", editing)
		}
		org = existing
	}

	// Unset flags keep the values of the record being edited.
	if cmd.Flags().Changed("name") || editing == "" {
		org.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("credential") {
		org.Credential, _ = cmd.Flags().GetString("credential")
	}
	if cmd.Flags().Changed("display-name") {
		org.DisplayName, _ = cmd.Flags().GetString("display-name")
	}
	if cmd.Flags().Changed("expires") {
		raw, _ := cmd.Flags().GetString("expires")
		org.ExpiresAt = time.Time{}
		if raw != "" {
			t, err := model.ParseDay(raw)
			if err != nil {
				return err
			}
			org.ExpiresAt = t
		}
	}

	if err := a.svc.SaveOrganization(ctx, editing, org); err != nil {
		return err
	}

	fmt.Println(tui.SuccessStyle.Render("Saved ") + org.Name)
	if missing := org.Missing(); len(missing) > 0 {
		fmt.Println(tui.WarningStyle.Render("Still missing: " + strings.Join(missing, ", ")))
	}
	return nil
}

func runOrgsList(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	orgs, err := a.svc.Organizations(ctx)
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		fmt.Println("No organizations configured. Add one with 'adotime orgs add'.")
		return nil
	}

	now := time.Now()
	for _, o := range orgs {
		line := fmt.Sprintf("  %-20s %-24s %-12s %s", o.Name, o.DisplayName, maskCredential(o.Credential), notify.Describe(o, now))
		if missing := o.Missing(); len(missing) > 0 {
			line += tui.WarningStyle.Render("  missing " + strings.Join(missing, ", "))
		}
		fmt.Println(line)
	}
	return nil
}

func maskCredential(s string) string {
	if s == "" {
		return "-"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func runOrgsRemove(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := a.svc.RemoveOrganization(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}

func runOrgsCheck(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	orgs, err := a.svc.Organizations(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	window := time.Duration(a.cfg.Notifications.ExpiryWarningDays) * 24 * time.Hour
	expiring := notify.Expiring(orgs, now, window)
	if len(expiring) == 0 {
		fmt.Printf("No credentials expire within %d days.\n", a.cfg.Notifications.ExpiryWarningDays)
		return nil
	}
	for _, o := range expiring {
		fmt.Println(tui.WarningStyle.Render(fmt.Sprintf("%s: %s", o.Name, notify.Describe(o, now))))
	}

	if send, _ := cmd.Flags().GetBool("notify"); send && a.cfg.Notifications.Enabled {
		if _, err := notify.WarnExpiring(notify.Desktop{}, orgs, now, window); err != nil {
			a.logger.Warn("desktop notification failed", "error", err)
		}
	}
	return nil
}
