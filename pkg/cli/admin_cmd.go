package cli

import (
	"time"

	"github.com/spf13/cobra"
)

type adminView struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newAdminCmd(open appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage bot admins",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add USER_ID",
		Short: "Flag a user as admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if err := a.Services.Admins.Add(cmd.Context(), args[0]); err != nil {
				return err
			}
			return done(cmd, "user %s is now an admin", args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove USER_ID",
		Short: "Clear the admin flag of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if err := a.Services.Admins.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			return done(cmd, "user %s is no longer an admin", args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			admins, err := a.Services.Admins.List(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]adminView, len(admins))
			rows := make([][]string, len(admins))
			for i, ad := range admins {
				views[i] = adminView{UserID: ad.UserID, CreatedAt: ad.CreatedAt}
				rows[i] = []string{ad.UserID, formatTime(ad.CreatedAt)}
			}
			return render(cmd, views, []string{"user_id", "created_at"}, rows)
		},
	})

	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
