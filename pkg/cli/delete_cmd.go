package cli

import (
	"github.com/spf13/cobra"

	"alpine-bot/internal/domain"
)

type purgeView struct {
	Deleted string   `json:"deleted"`
	Purged  []string `json:"purged"`
}

func newDeleteCmd(open appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete principals, commands, groups or resources",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "principal PRINCIPAL",
		Short: "Delete a principal with every entitlement and level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePrincipal(args[0])
			if err != nil {
				return err
			}
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if err := a.Services.Entitlements.DeletePrincipal(cmd.Context(), p); err != nil {
				return err
			}
			return done(cmd, "deleted %s", p)
		},
	})

	purged := func(cmd *cobra.Command, name string, res domain.PurgeResult) error {
		v := purgeView{Deleted: name, Purged: make([]string, len(res.Purged))}
		for i, p := range res.Purged {
			v.Purged[i] = p.String()
		}
		if outputFormat(cmd) == "json" {
			return PrintJSON(cmd.OutOrStdout(), v)
		}
		if len(v.Purged) == 0 {
			return done(cmd, "deleted %s", name)
		}
		return done(cmd, "deleted %s; removed %d principal(s) left with nothing", name, len(v.Purged))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "command NAME",
		Short: "Delete a command and its subcommands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			res, err := a.Services.Entitlements.DeleteCommand(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return purged(cmd, args[0], res)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "group NAME",
		Short: "Delete a group with its commands and resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if _, watched := a.Reconciler.Spec(args[0]); watched {
				if err := a.Reconciler.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			res, err := a.Services.Entitlements.DeleteGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return purged(cmd, args[0], res)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "resource GROUP",
		Short: "Forget the stored state of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if err := a.Reconciler.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			return done(cmd, "deleted resource %s", args[0])
		},
	})

	return cmd
}
