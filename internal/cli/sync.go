package cli

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/service"
)

func newResyncCmd(opts *rootOptions) *cobra.Command {
	var (
		companyID int64
		months    int
		full      bool
		since     string
		async     bool
	)

	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Rebuild revenue snapshots for one company",
		Long: `Rebuild revenue snapshots for one company.

The company owner's access is still checked and the sync lease is honoured,
so a resync never runs alongside another sync for the same company.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if companyID <= 0 {
				return errors.New("--company is required")
			}
			c, err := opts.app()
			if err != nil {
				return err
			}

			company, err := c.CompanyRepo.GetByID(companyID)
			if err != nil {
				return service.ErrCompanyNotFound
			}
			sinceAt, err := service.ParseSince(since)
			if err != nil {
				return err
			}

			msg := &queue.SyncJobMessage{
				CompanyID: company.ID,
				UserID:    company.OwnerID,
				Months:    months,
				FullSync:  full,
				Since:     sinceAt,
				Trigger:   queue.TriggerManual,
			}

			if async {
				if err := c.Queue.Push(cmd.Context(), msg); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "queued sync for company %d\n", company.ID)
				return nil
			}

			resp, err := c.Sync.RunJob(cmd.Context(), msg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().Int64Var(&companyID, "company", 0, "company id")
	cmd.Flags().IntVar(&months, "months", 0, "months to rebuild (3-24, default from config)")
	cmd.Flags().BoolVar(&full, "full", false, "ignore --since and scan every subscription")
	cmd.Flags().StringVar(&since, "since", "", "incremental start, RFC3339 or YYYY-MM-DD")
	cmd.Flags().BoolVar(&async, "async", false, "push to the worker queue instead of running inline")
	return cmd
}

func newEnqueueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue-all",
		Short: "Queue the scheduled sync for every connected company now",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.app()
			if err != nil {
				return err
			}
			start := time.Now()
			n, err := c.Sync.EnqueueScheduledSyncs(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "queued %d companies in %s\n", n, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
