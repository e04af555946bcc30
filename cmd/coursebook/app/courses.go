package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coursebook/internal/contract"
	"coursebook/internal/domain"
	"coursebook/internal/service"
)

// listColumns is the projection of the course list
var listColumns = []string{contract.ColumnID, contract.ColumnName, contract.ColumnRoom}

type List struct {
	cmd *cobra.Command

	mainopts *Options
	order    string
	all      bool
}

func NewList(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <options>",
		Short: "list courses",
		Args:  cobra.NoArgs,
	}

	c := &List{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context()) }
	flags := cmd.Flags()
	flags.StringVarP(&c.order, "order", "o", contract.ColumnID, "sort order, e.g. \"day, time DESC\"")
	flags.BoolVarP(&c.all, "all", "A", false, "show every column")
	return cmd
}

// Run prints the course table. A failed query prints an empty table;
// the cause goes to the log.
func (c *List) Run(ctx context.Context) error {
	env, err := c.mainopts.Setup()
	if err != nil {
		return err
	}
	defer env.Close()

	columns := listColumns
	if c.all {
		columns = contract.Columns
	}

	courses, err := env.Service.ListCourses(ctx, columns, c.order)
	if err != nil {
		env.Log.Warn("failed to list courses", zap.Error(err))
		courses = nil
	}

	tw := tabwriter.NewWriter(c.cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for i := range courses {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = fieldString(&courses[i], col)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func NewShow(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "show one course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			env, err := opts.Setup()
			if err != nil {
				return err
			}
			defer env.Close()

			course, err := env.Service.GetCourse(cmd.Context(), id)
			if err != nil {
				return err
			}
			printCourse(cmd, course)
			return nil
		},
	}
}

// courseFlags binds one flag per writable column
type courseFlags struct {
	course domain.Course
}

func (f *courseFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.course.Name, contract.ColumnName, "n", "", "course name")
	flags.StringVarP(&f.course.Room, contract.ColumnRoom, "r", "", "room")
	flags.StringVarP(&f.course.Teacher, contract.ColumnTeacher, "t", "", "teacher")
	flags.StringVar(&f.course.Time, contract.ColumnTime, "", "time of day")
	flags.StringVarP(&f.course.Day, contract.ColumnDay, "d", "", "day of week")
}

// changed returns only the columns whose flags were given
func (f *courseFlags) changed(cmd *cobra.Command) domain.Values {
	all := f.course.Values()
	values := domain.Values{}
	for _, col := range contract.WritableColumns {
		if cmd.Flags().Changed(col) {
			values[col] = all[col]
		}
	}
	return values
}

func NewAdd(opts *Options) *cobra.Command {
	f := &courseFlags{}
	cmd := &cobra.Command{
		Use:   "add <options>",
		Short: "add a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Setup()
			if err != nil {
				return err
			}
			defer env.Close()

			course := f.course
			outcome, err := env.Service.SaveCourse(cmd.Context(), &course)
			if err != nil {
				return fmt.Errorf("error with saving course: %w", err)
			}
			if outcome == service.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to save")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "course saved: %s\n", contract.ItemURI(course.ID))
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func NewEdit(opts *Options) *cobra.Command {
	f := &courseFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id> <options>",
		Short: "change fields of a course",
		Long: `
Only the fields given as flags are changed. Passing --name "" is rejected,
since every course needs a name.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			values := f.changed(cmd)
			if len(values) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to update")
				return nil
			}

			env, err := opts.Setup()
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Service.UpdateCourse(cmd.Context(), id, values); err != nil {
				return fmt.Errorf("error with updating course: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "course updated")
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func NewDelete(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "delete courses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			env, err := opts.Setup()
			if err != nil {
				return err
			}
			defer env.Close()

			var cmderr error
			for _, id := range ids {
				if err := env.Service.DeleteCourse(cmd.Context(), id); err != nil {
					cmderr = errors.Join(cmderr, fmt.Errorf("error with deleting course %d: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d: deleted\n", id)
			}
			return cmderr
		},
	}
}

func NewClear(opts *Options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear --yes",
		Short: "delete every course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete all courses without --yes")
			}
			env, err := opts.Setup()
			if err != nil {
				return err
			}
			defer env.Close()

			n, err := env.Service.ClearCourses(cmd.Context())
			if err != nil {
				return fmt.Errorf("error with deleting courses: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d courses deleted\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func printCourse(cmd *cobra.Command, course *domain.Course) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "uri:\t%s\n", contract.ItemURI(course.ID))
	for _, col := range contract.Columns {
		fmt.Fprintf(tw, "%s:\t%s\n", col, fieldString(course, col))
	}
	tw.Flush()
}

func fieldString(course *domain.Course, column string) string {
	switch v := course.Field(column).(type) {
	case *int64:
		return fmt.Sprint(*v)
	case *string:
		return *v
	default:
		return ""
	}
}
