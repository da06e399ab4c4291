package cmd

import (
	"github.com/spf13/cobra"

	"scoreboard/internal/cli"
	"scoreboard/internal/intra"
)

var (
	meOutput      cli.OutputFlags
	summaryOutput cli.OutputFlags
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your intranet profile",
	Args:  cobra.NoArgs,
	RunE:  runMe,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show student and pooler statistics",
	Long: `Fetch your profile and both listings concurrently and print totals,
average and top levels and how many users are online.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	cli.RegisterOutputFlags(meCmd, &meOutput)
	cli.RegisterOutputFlags(summaryCmd, &summaryOutput)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(summaryCmd)
}

func runMe(cmd *cobra.Command, args []string) error {
	f, err := meOutput.Formatter(cmd)
	if err != nil {
		return err
	}
	application, err := newApplication(true)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	me, err := s.API.Me(commandContext(cmd))
	if err != nil {
		return translate(s, err)
	}
	return f.Profile(me)
}

func runSummary(cmd *cobra.Command, args []string) error {
	f, err := summaryOutput.Formatter(cmd)
	if err != nil {
		return err
	}
	application, err := newApplication(true)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	var sum *intra.Summary
	err = cli.WithSpinner(cmd.ErrOrStderr(), summaryOutput.Quiet, "Fetching summary...", func() error {
		var err error
		sum, err = s.API.Summary(commandContext(cmd))
		return err
	})
	if err != nil {
		return translate(s, err)
	}
	return f.Summary(sum)
}
