package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/provider/memory"
)

var (
	demoEmail    string
	demoPassword string
	demoAudit    bool
	demoTimeout  time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted sign-in, profile switch and sign-out",
	Long: `demo registers a user with an in-memory identity provider, seeds three profiles
into the configured store (an ephemeral miniredis when none is configured) and
drives a Manager through activation, login, a profile switch and logout,
printing each published state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, backend, closeStore, err := openStore(ctx, true)
		if err != nil {
			return err
		}
		defer closeStore()
		pterm.Info.Printf("Profile store: %s\n", backend)

		provider, err := memory.New()
		if err != nil {
			return err
		}
		user, err := provider.AddUser(demoEmail, demoPassword, goSession.UserMetadata{FirstName: "Demo", LastName: "User"})
		if err != nil {
			return err
		}
		if err := store.PutProfiles(ctx, user.ID, []goSession.Profile{
			{ID: user.ID + "-member", Name: "Personal", Type: goSession.ProfileTypeMember},
			{ID: user.ID + "-coach", Name: "Coaching", Type: goSession.ProfileTypeCoach},
			{ID: user.ID + "-admin", Name: "Operations", Type: goSession.ProfileTypeAdmin},
		}); err != nil {
			return err
		}

		builder := goSession.New().
			WithIdentityProvider(provider).
			WithProfileStore(store).
			WithLogger(newLogger())
		if demoAudit {
			cfg := goSession.DefaultConfig()
			cfg.Audit.Enabled = true
			builder = builder.WithConfig(cfg).WithAuditSink(goSession.NewJSONWriterSink(os.Stderr))
		}
		m, err := builder.Build()
		if err != nil {
			return err
		}
		defer m.Close()

		updates, stop := m.Watch(16)
		defer stop()
		go printStates(updates)

		pterm.DefaultSection.Println("Activate")
		if err := m.Activate(ctx); err != nil {
			return err
		}
		if err := await(m, func(s goSession.State) bool { return s.Phase == goSession.PhaseReady }); err != nil {
			return err
		}

		pterm.DefaultSection.Println("Login")
		if _, err := m.Login(ctx, demoEmail, demoPassword); err != nil {
			return err
		}
		if err := await(m, func(s goSession.State) bool { return s.ActiveProfile != nil }); err != nil {
			return err
		}
		s := m.State()
		pterm.Success.Printf("Signed in as %s (%s)\n", s.User.DisplayName(), s.User.Initials())
		if err := renderProfiles(s.Profiles, s.ActiveProfile.ID); err != nil {
			return err
		}

		pterm.DefaultSection.Println("Switch profile")
		target := s.Profiles[len(s.Profiles)-1]
		if _, err := m.SwitchProfile(ctx, target.ID); err != nil {
			return err
		}
		s = m.State()
		pterm.Success.Printf("Active profile: %s, roles: %s\n", s.ActiveProfile.Name, formatRoles(s.Roles()))

		pterm.DefaultSection.Println("Logout")
		if err := m.Logout(ctx); err != nil {
			return err
		}
		if err := await(m, func(s goSession.State) bool { return !s.IsAuthenticated() }); err != nil {
			return err
		}
		pterm.Success.Println("Signed out; profiles cleared.")

		snap := m.MetricsSnapshot()
		pterm.Info.Printf("Profile loads: %d, switches: %d, events applied: %d\n",
			snap.Counters[goSession.MetricProfileLoadSuccess],
			snap.Counters[goSession.MetricProfileSwitchSuccess],
			snap.Counters[goSession.MetricEventApplied],
		)
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoEmail, "email", "demo@example.com", "email of the demo user")
	demoCmd.Flags().StringVar(&demoPassword, "password", "correct-horse-battery", "password of the demo user")
	demoCmd.Flags().BoolVar(&demoAudit, "audit", false, "write audit events to stderr as JSON")
	demoCmd.Flags().DurationVar(&demoTimeout, "timeout", 5*time.Second, "max wait for each state transition")
}

func await(m *goSession.Manager, cond func(goSession.State) bool) error {
	ch, cancel := m.Watch(1)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), demoTimeout)
	defer done()
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return goSession.ErrManagerClosed
			}
			if cond(s) {
				return nil
			}
		case <-ctx.Done():
			return errors.New("timed out waiting for the manager")
		}
	}
}

func printStates(ch <-chan goSession.State) {
	for s := range ch {
		user := "-"
		if s.User != nil {
			user = s.User.Email
		}
		active := "-"
		if s.ActiveProfile != nil {
			active = s.ActiveProfile.ID
		}
		pterm.Debug.Printfln("state phase=%s user=%s profiles=%d active=%s", s.Phase, user, len(s.Profiles), active)
	}
}
