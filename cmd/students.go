package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scoreboard/internal/cli"
	"scoreboard/internal/intra"
)

// listFlags holds the filters shared by students and poolers.
type listFlags struct {
	search   string
	year     string
	sort     string
	order    string
	page     int
	pageSize int
	output   cli.OutputFlags
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "Only users whose login matches this text")
	cmd.Flags().StringVar(&f.year, "year", "all", "Promo or pool year, or \"all\"")
	cmd.Flags().StringVar(&f.sort, "sort", "level", "Sort by level, name or login")
	cmd.Flags().StringVar(&f.order, "order", "desc", "Sort order, asc or desc")
	cmd.Flags().IntVar(&f.page, "page", 0, "Page of the cursus listing to fetch (default: the first)")
	cmd.Flags().IntVar(&f.pageSize, "page-size", intra.DefaultPageSize, "Users per page requested from the intranet")
	cli.RegisterOutputFlags(cmd, &f.output)
}

func (f *listFlags) filters() (intra.Filters, error) {
	year, err := intra.ParseYear(f.year)
	if err != nil {
		return intra.Filters{}, err
	}
	sortBy, order, err := intra.ParseSort(f.sort, f.order)
	if err != nil {
		return intra.Filters{}, err
	}
	if f.page < 0 {
		return intra.Filters{}, fmt.Errorf("--page must not be negative")
	}
	if f.pageSize < 1 {
		return intra.Filters{}, fmt.Errorf("--page-size must be a positive integer")
	}
	return intra.Filters{
		Search:    f.search,
		Year:      year,
		SortBy:    sortBy,
		SortOrder: order,
		Page:      f.page,
		PageSize:  f.pageSize,
	}, nil
}

var (
	studentsFlags listFlags
	poolersFlags  listFlags
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List students of the main cursus",
	Long: `List the students of the main 42 cursus with their level, wallet,
evaluation points and whether they are logged in at a workstation.

Examples:
  scoreboard students
  scoreboard students --year 2022 --sort name --order asc
  scoreboard students --search ali -o json`,
	Args: cobra.NoArgs,
	RunE: runStudents,
}

var poolersCmd = &cobra.Command{
	Use:   "poolers",
	Short: "List piscine participants",
	Long: `List the participants of the piscine (the selection pool) with their
level and pool dates.

Examples:
  scoreboard poolers
  scoreboard poolers --year 2025 --sort login`,
	Args: cobra.NoArgs,
	RunE: runPoolers,
}

func init() {
	studentsFlags.register(studentsCmd)
	poolersFlags.register(poolersCmd)
	rootCmd.AddCommand(studentsCmd)
	rootCmd.AddCommand(poolersCmd)
}

func runStudents(cmd *cobra.Command, args []string) error {
	filters, err := studentsFlags.filters()
	if err != nil {
		return err
	}
	f, err := studentsFlags.output.Formatter(cmd)
	if err != nil {
		return err
	}

	application, err := newApplication(true)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	var students []intra.Student
	err = cli.WithSpinner(cmd.ErrOrStderr(), studentsFlags.output.Quiet, "Fetching students...", func() error {
		var err error
		students, err = s.API.Students(commandContext(cmd), filters)
		return err
	})
	if err != nil {
		return translate(s, err)
	}
	return f.Students(students, intra.StudentStats(students))
}

func runPoolers(cmd *cobra.Command, args []string) error {
	filters, err := poolersFlags.filters()
	if err != nil {
		return err
	}
	f, err := poolersFlags.output.Formatter(cmd)
	if err != nil {
		return err
	}

	application, err := newApplication(true)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	var poolers []intra.Pooler
	err = cli.WithSpinner(cmd.ErrOrStderr(), poolersFlags.output.Quiet, "Fetching poolers...", func() error {
		var err error
		poolers, err = s.API.Poolers(commandContext(cmd), filters)
		return err
	})
	if err != nil {
		return translate(s, err)
	}
	return f.Poolers(poolers, intra.PoolerStats(poolers))
}
