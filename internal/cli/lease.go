package cli

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newLeaseCmd(opts *rootOptions) *cobra.Command {
	var companyID int64

	cmd := &cobra.Command{
		Use:   "lease",
		Short: "Inspect or reset a company's sync lease",
	}
	cmd.PersistentFlags().Int64Var(&companyID, "company", 0, "company id")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the sync lease state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if companyID <= 0 {
				return errors.New("--company is required")
			}
			c, err := opts.app()
			if err != nil {
				return err
			}
			st, err := c.Revenue.SyncStatusByCompany(companyID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "company:        %d\n", st.CompanyID)
			printf(out, "status:         %s\n", st.Status)
			printf(out, "run_id:         %s\n", st.RunID)
			printf(out, "started_at:     %s\n", lo.FromPtr(st.StartedAt))
			printf(out, "finished_at:    %s\n", lo.FromPtr(st.FinishedAt))
			printf(out, "last_success:   %s\n", lo.FromPtr(st.LastSuccessAt))
			printf(out, "last_error:     %s\n", st.LastError)
			printf(out, "subscriptions:  %d\n", st.SubscriptionsProcessed)

			statuses := lo.Keys(st.StatusBreakdown)
			if len(statuses) > 0 {
				sort.Strings(statuses)
				parts := lo.Map(statuses, func(s string, _ int) string {
					return s + "=" + strconv.Itoa(st.StatusBreakdown[s])
				})
				printf(out, "breakdown:      %s\n", strings.Join(parts, " "))
			}
			if snap, err := c.SnapshotRepo.Latest(companyID); err == nil {
				printf(out, "latest month:   %s mrr=%s\n", snap.Date, snap.MRR.StringFixed(2))
			}
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Force the lease back to idle",
		Long: `Force the lease back to idle.

Only use this when a sync process died and you cannot wait for the lease to go stale.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if companyID <= 0 {
				return errors.New("--company is required")
			}
			c, err := opts.app()
			if err != nil {
				return err
			}
			ok, err := c.Sync.ResetLease(companyID)
			if err != nil {
				return err
			}
			if !ok {
				printf(cmd.OutOrStdout(), "no lease for company %d\n", companyID)
				return nil
			}
			printf(cmd.OutOrStdout(), "lease reset for company %d\n", companyID)
			return nil
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}
