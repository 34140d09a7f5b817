package cli

import (
	"time"

	"github.com/spf13/cobra"

	"alpine-bot/internal/domain"
)

type principalView struct {
	Principal string    `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
}

type groupView struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type commandView struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

type entitlementView struct {
	Principal string    `json:"principal"`
	Command   string    `json:"command"`
	Group     string    `json:"group"`
	GrantedAt time.Time `json:"granted_at"`
}

type membershipView struct {
	Principal string `json:"principal"`
	Group     string `json:"group"`
}

type resourceView struct {
	Group     string    `json:"group"`
	Class     string    `json:"class"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

type auditView struct {
	ID        string    `json:"id"`
	Principal string    `json:"principal"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newListCmd(open appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "principals",
		Short: "List users and channels holding anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			ps, err := a.Services.Entitlements.ListPrincipals(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]principalView, len(ps))
			rows := make([][]string, len(ps))
			for i, p := range ps {
				views[i] = principalView{Principal: p.String(), CreatedAt: p.CreatedAt}
				rows[i] = []string{views[i].Principal, formatTime(p.CreatedAt)}
			}
			return render(cmd, views, []string{"principal", "created_at"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "groups",
		Short: "List registered feature groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			gs, err := a.Services.Entitlements.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]groupView, len(gs))
			rows := make([][]string, len(gs))
			for i, g := range gs {
				views[i] = groupView{Name: g.Name, Kind: string(g.Kind), CreatedAt: g.CreatedAt}
				rows[i] = []string{g.Name, string(g.Kind), formatTime(g.CreatedAt)}
			}
			return render(cmd, views, []string{"name", "kind", "created_at"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "commands [GROUP]",
		Short: "List registered commands, optionally of one group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			var group string
			if len(args) == 1 {
				group = args[0]
			}
			cs, err := a.Services.Entitlements.ListCommands(cmd.Context(), group)
			if err != nil {
				return err
			}
			views := make([]commandView, len(cs))
			rows := make([][]string, len(cs))
			for i, c := range cs {
				views[i] = commandView{Name: c.Name, Group: c.GroupName}
				rows[i] = []string{c.Name, c.GroupName}
			}
			return render(cmd, views, []string{"name", "group"}, rows)
		},
	})

	var principal string
	entCmd := &cobra.Command{
		Use:   "entitlements",
		Short: "List direct entitlements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			var ents []domain.Entitlement
			if principal != "" {
				p, perr := parsePrincipal(principal)
				if perr != nil {
					return perr
				}
				ents, err = a.Services.Entitlements.ListCommandsForPrincipal(cmd.Context(), p)
			} else {
				ents, err = a.Services.Entitlements.ListEntitlements(cmd.Context())
			}
			if err != nil {
				return err
			}
			views := make([]entitlementView, len(ents))
			rows := make([][]string, len(ents))
			for i, e := range ents {
				views[i] = entitlementView{
					Principal: e.Principal.String(),
					Command:   e.CommandName,
					Group:     e.GroupName,
					GrantedAt: e.GrantedAt,
				}
				rows[i] = []string{views[i].Principal, e.CommandName, e.GroupName, formatTime(e.GrantedAt)}
			}
			return render(cmd, views, []string{"principal", "command", "group", "granted_at"}, rows)
		},
	}
	entCmd.Flags().StringVar(&principal, "principal", "", "Only this principal (user:<id> or channel:<id>)")
	cmd.AddCommand(entCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "memberships",
		Short: "List principal to group memberships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			ms, err := a.Services.Entitlements.ListMemberships(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]membershipView, len(ms))
			rows := make([][]string, len(ms))
			for i, m := range ms {
				views[i] = membershipView{Principal: m.Principal.String(), Group: m.GroupName}
				rows[i] = []string{views[i].Principal, m.GroupName}
			}
			return render(cmd, views, []string{"principal", "group"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "permissions [GROUP]",
		Short: "List permission levels, optionally of one group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			var group string
			if len(args) == 1 {
				group = args[0]
			}
			levels, err := a.Services.Permissions.ListPermissions(cmd.Context(), group)
			if err != nil {
				return err
			}
			views, rows := permissionRows(levels)
			return render(cmd, views, []string{"principal", "group", "level", "updated_at"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "resources",
		Short: "List resources with their stored state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			rs, err := a.Services.States.List(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]resourceView, len(rs))
			rows := make([][]string, len(rs))
			for i, r := range rs {
				views[i] = toResourceView(r)
				rows[i] = []string{r.GroupName, string(r.Class), r.State.String(), formatTime(r.UpdatedAt)}
			}
			return render(cmd, views, []string{"group", "class", "state", "updated_at"}, rows)
		},
	})

	cmd.AddCommand(newListAuditCmd(open))

	return cmd
}

func newListAuditCmd(open appFunc) *cobra.Command {
	var (
		principal string
		action    string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List audit log entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			filter := domain.AuditFilter{Limit: limit}
			if principal != "" {
				filter.Principal = &principal
			}
			if action != "" {
				filter.Action = &action
			}
			entries, err := a.Services.Audit.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			views := make([]auditView, len(entries))
			rows := make([][]string, len(entries))
			for i, e := range entries {
				views[i] = auditView{
					ID:        e.ID,
					Principal: e.Principal,
					Action:    e.Action,
					Target:    e.Target,
					Detail:    e.Detail,
					CreatedAt: e.CreatedAt,
				}
				rows[i] = []string{formatTime(e.CreatedAt), e.Principal, e.Action, e.Target, e.Detail}
			}
			return render(cmd, views, []string{"time", "principal", "action", "target", "detail"}, rows)
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "", "Only entries by this actor")
	cmd.Flags().StringVar(&action, "action", "", "Only entries with this action, e.g. GRANT_COMMAND")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	return cmd
}

func toResourceView(r domain.Resource) resourceView {
	return resourceView{
		Group:     r.GroupName,
		Class:     string(r.Class),
		State:     r.State.String(),
		UpdatedAt: r.UpdatedAt,
	}
}
