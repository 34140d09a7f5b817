package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"alpine-bot/internal/domain"
)

type revokeView struct {
	Principal string   `json:"principal"`
	Revoked   []string `json:"revoked"`
	Purged    bool     `json:"purged"`
}

func newGrantCmd(open appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Entitle a principal to commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "command PRINCIPAL COMMAND",
		Short: "Grant one command; PRINCIPAL is user:<id> or channel:<id>",
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
			group, _, _ := strings.Cut(args[1], ".")
			created, err := a.Services.Entitlements.GrantCommand(cmd.Context(), p, args[1], group)
			if err != nil {
				return err
			}
			return granted(cmd, p, args[1], created)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "group PRINCIPAL GROUP",
		Short: "Grant every command of a group",
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
			created, err := a.Services.Entitlements.GrantGroup(cmd.Context(), p, args[1])
			if err != nil {
				return err
			}
			return granted(cmd, p, "group "+args[1], created)
		},
	})

	return cmd
}

func granted(cmd *cobra.Command, p domain.PrincipalRef, what string, created bool) error {
	if created {
		return done(cmd, "granted %s to new principal %s", what, p)
	}
	return done(cmd, "granted %s to %s", what, p)
}

func newRevokeCmd(open appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Remove entitlements from a principal",
	}

	revoke := func(cmd *cobra.Command, p domain.PrincipalRef, res domain.RevokeResult) error {
		if outputFormat(cmd) == "json" {
			revoked := res.Revoked
			if revoked == nil {
				revoked = []string{}
			}
			return PrintJSON(cmd.OutOrStdout(), revokeView{Principal: p.String(), Revoked: revoked, Purged: res.Purged})
		}
		if len(res.Revoked) == 0 {
			return done(cmd, "%s held nothing to revoke", p)
		}
		msg := "revoked " + strings.Join(res.Revoked, ", ") + " from " + p.String()
		if res.Purged {
			msg += "; principal removed"
		}
		return done(cmd, "%s", msg)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "command PRINCIPAL COMMAND",
		Short: "Revoke a command and its unused parents",
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
			res, err := a.Services.Entitlements.RevokeCommand(cmd.Context(), p, args[1])
			if err != nil {
				return err
			}
			return revoke(cmd, p, res)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "group PRINCIPAL GROUP",
		Short: "Revoke every command of a group",
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
			res, err := a.Services.Entitlements.RevokeGroup(cmd.Context(), p, args[1])
			if err != nil {
				return err
			}
			return revoke(cmd, p, res)
		},
	})

	return cmd
}
