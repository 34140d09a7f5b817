package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"alpine-bot/internal/domain"
)

type permissionView struct {
	Principal string    `json:"principal"`
	Group     string    `json:"group"`
	Level     int       `json:"level"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func newPermCmd(open appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perm",
		Short: "Manage permission levels in leveled groups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set PRINCIPAL GROUP LEVEL",
		Short: "Set the level of a principal in a group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePrincipal(args[0])
			if err != nil {
				return err
			}
			level, err := strconv.Atoi(args[2])
			if err != nil {
				return domain.ErrValidation("level must be an integer, got %q", args[2])
			}
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if err := a.Services.Permissions.SetPermission(cmd.Context(), p, args[1], level); err != nil {
				return err
			}
			return done(cmd, "%s has level %d in %s", p, level, args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get PRINCIPAL GROUP",
		Short: "Show the level of a principal in a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePrincipal(args[0])
			if err != nil {
				return err
			}
			a, err := open(cmd)
			if err != nil {
				return err
			}
			level, ok, err := a.Services.Permissions.GetPermission(cmd.Context(), p, args[1])
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrNotFound("%s has no level in %s", p, args[1])
			}
			v := permissionView{Principal: p.String(), Group: args[1], Level: level}
			return render(cmd, v, []string{"principal", "group", "level"},
				[][]string{{v.Principal, v.Group, strconv.Itoa(level)}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove PRINCIPAL GROUP",
		Short: "Remove the level of a principal in a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePrincipal(args[0])
			if err != nil {
				return err
			}
			a, err := open(cmd)
			if err != nil {
				return err
			}
			purged, err := a.Services.Permissions.RemovePermission(cmd.Context(), p, args[1])
			if err != nil {
				return err
			}
			if purged {
				return done(cmd, "removed level of %s in %s; principal removed", p, args[1])
			}
			return done(cmd, "removed level of %s in %s", p, args[1])
		},
	})

	return cmd
}

func permissionRows(levels []domain.PermissionLevel) ([]permissionView, [][]string) {
	views := make([]permissionView, len(levels))
	rows := make([][]string, len(levels))
	for i, l := range levels {
		views[i] = permissionView{
			Principal: l.Principal.String(),
			Group:     l.GroupName,
			Level:     l.Level,
			UpdatedAt: l.UpdatedAt,
		}
		rows[i] = []string{views[i].Principal, l.GroupName, strconv.Itoa(l.Level), formatTime(l.UpdatedAt)}
	}
	return views, rows
}
