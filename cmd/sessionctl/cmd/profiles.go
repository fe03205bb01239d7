package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

var profileSpecs []string

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Seed and inspect stored profiles",
}

var profilesPutCmd = &cobra.Command{
	Use:   "put USER_ID",
	Short: "Replace a user's profile set",
	Long: `Replace the profile set of USER_ID. Each --profile is ID:NAME:TYPE where TYPE is
one of member, coach, navigator or admin. Order is preserved.`,
	Example: `  sessionctl profiles put u1 --profile p1:Personal:member --profile p2:Coaching:coach`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := parseProfileSpecs(profileSpecs)
		if err != nil {
			return err
		}

		store, backend, closeStore, err := openStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.PutProfiles(cmd.Context(), args[0], profiles); err != nil {
			return err
		}
		pterm.Success.Printf("Stored %d profile(s) for %s in %s\n", len(profiles), args[0], backend)
		return nil
	},
}

var profilesListCmd = &cobra.Command{
	Use:   "list USER_ID",
	Short: "List a user's profiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closeStore, err := openStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeStore()

		listing, err := store.ListProfiles(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(listing.Profiles) == 0 {
			pterm.Info.Printf("No profiles stored for %s.\n", args[0])
			return nil
		}
		return renderProfiles(listing.Profiles, listing.PreferredActiveProfileID)
	},
}

var profilesActivateCmd = &cobra.Command{
	Use:   "activate USER_ID PROFILE_ID",
	Short: "Remember a profile as the user's active one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closeStore, err := openStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeStore()

		p, err := store.SetActiveProfile(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		pterm.Success.Printf("Active profile for %s is now %s (%s)\n", args[0], p.ID, p.Name)
		return nil
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete USER_ID PROFILE_ID...",
	Short: "Delete profiles",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closeStore, err := openStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := store.DeleteProfiles(cmd.Context(), args[0], args[1:]...)
		if err != nil {
			return err
		}
		if n < len(args)-1 {
			pterm.Warning.Printf("Deleted %d of %d requested profile(s)\n", n, len(args)-1)
			return nil
		}
		pterm.Success.Printf("Deleted %d profile(s)\n", n)
		return nil
	},
}

func init() {
	profilesPutCmd.Flags().StringArrayVar(&profileSpecs, "profile", nil, "profile as ID:NAME:TYPE (repeatable)")
	_ = profilesPutCmd.MarkFlagRequired("profile")

	profilesCmd.AddCommand(profilesPutCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesActivateCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
}

func parseProfileSpecs(specs []string) ([]goSession.Profile, error) {
	out := make([]goSession.Profile, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid profile %q: want ID:NAME:TYPE", spec)
		}
		typ := goSession.ParseProfileType(parts[2])
		if typ == goSession.ProfileTypeUnknown {
			return nil, fmt.Errorf("invalid profile %q: unknown type %q", spec, parts[2])
		}
		out = append(out, goSession.Profile{ID: parts[0], Name: parts[1], Type: typ})
	}
	return out, nil
}

func renderProfiles(profiles []goSession.Profile, activeID string) error {
	table := pterm.TableData{{"ID", "NAME", "TYPE", "ROLES", "ACTIVE"}}
	for _, p := range profiles {
		active := ""
		if p.ID == activeID {
			active = "*"
		}
		table = append(table, []string{p.ID, p.Name, p.Type.String(), formatRoles(p.Roles()), active})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

func formatRoles(r goSession.RoleFlags) string {
	var out []string
	if r.Admin {
		out = append(out, "admin")
	}
	if r.Coach {
		out = append(out, "coach")
	}
	if r.Navigator {
		out = append(out, "navigator")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}
