package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/David-Botos/enrollment-ingress/pkg/transfer"
)

func newVerifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every canonical table for key violations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := transfer.NewVerifier(a.store, a.logger.Named("verifier")).VerifyAll(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				err = printJSON(cmd, reports)
			} else {
				_, err = fmt.Fprint(cmd.OutOrStdout(), transfer.GenerateReport(reports))
			}
			if err != nil {
				return err
			}

			for _, r := range reports {
				if !r.OK() {
					return errors.New("verification found integrity issues")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	return cmd
}
