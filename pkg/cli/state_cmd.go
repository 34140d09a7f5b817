package cli

import (
	"github.com/spf13/cobra"
)

func newStateCmd(open appFunc) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "state GROUP",
		Short: "Show the stored state of a resource",
		Long:  "Show the stored state of a resource. With --probe, run one reconciliation first and store its result.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if probe {
				if _, err := a.Reconciler.ReconcileOnce(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			rs, err := a.Services.States.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rs {
				if r.GroupName != args[0] {
					continue
				}
				v := toResourceView(r)
				return render(cmd, v, []string{"group", "class", "state", "updated_at"},
					[][]string{{v.Group, v.Class, v.State, formatTime(r.UpdatedAt)}})
			}
			_, err = a.Services.States.GetState(cmd.Context(), args[0])
			return err
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Probe the resource before reporting")
	return cmd
}
