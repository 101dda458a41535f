package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"expensetracker/internal/database"
	"expensetracker/internal/models"
	"expensetracker/internal/viewmodel"

	"github.com/spf13/cobra"
)

var (
	expenseAmount      string
	expenseDescription string
	expenseCategory    string
	totalByCategory    bool
	listPage           int
	listPerPage        int
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new expense",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			vm := newViewModel(ctx, a)
			defer vm.Close()

			if !vm.SetAmount(expenseAmount) {
				return fmt.Errorf("amount %q: only digits and one decimal point are allowed", expenseAmount)
			}
			vm.SetDescription(expenseDescription)
			if expenseCategory != "" && !vm.SelectCategory(models.Category(expenseCategory)) {
				return fmt.Errorf("%w: %q (one of %s)", models.ErrUnknownCategory, expenseCategory, categoryList())
			}
			if !vm.SaveExpense() {
				return errors.New("amount must be greater than zero and description must not be blank")
			}
			vm.Flush()

			if vm.State().Form.Amount != "" {
				return errors.New("expense was not saved")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Expense saved.")
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			list, err := a.store.List(ctx)
			if err != nil {
				return err
			}
			total, err := a.store.Total(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if listPerPage > 0 {
				p := paginate(len(list), listPage-1, listPerPage)
				list = list[p.Start:p.End]
				fmt.Fprintf(out, "Página %d de %d\n\n", p.Page+1, p.Pages)
			}
			printExpenses(out, list, total)
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the amount, description or category of an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			e, err := a.db.GetExpense(ctx, id)
			if err != nil {
				return err
			}

			vm := newViewModel(ctx, a)
			defer vm.Close()

			vm.StartEdit(*e)
			if cmd.Flags().Changed("amount") && !vm.SetEditAmount(expenseAmount) {
				return fmt.Errorf("amount %q: only digits and one decimal point are allowed", expenseAmount)
			}
			if cmd.Flags().Changed("description") {
				vm.SetEditDescription(expenseDescription)
			}
			if cmd.Flags().Changed("category") && !vm.SelectEditCategory(models.Category(expenseCategory)) {
				return fmt.Errorf("%w: %q (one of %s)", models.ErrUnknownCategory, expenseCategory, categoryList())
			}
			if !vm.SaveEdit() {
				return errors.New("amount must be greater than zero and description must not be blank")
			}
			vm.Flush()

			if vm.State().Edit.DialogVisible {
				return errors.New("expense was not updated")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense %d updated.\n", id)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			e, err := a.db.GetExpense(ctx, id)
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("no expense with id %d", id)
			}
			if err != nil {
				return err
			}

			vm := newViewModel(ctx, a)
			defer vm.Close()
			vm.DeleteExpense(*e)
			vm.Flush()

			fmt.Fprintf(cmd.OutOrStdout(), "Expense %d deleted.\n", id)
			return nil
		})
	},
}

var totalCmd = &cobra.Command{
	Use:   "total",
	Short: "Show the total of all expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			out := cmd.OutOrStdout()
			if totalByCategory {
				totals, err := a.store.CategoryTotals(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, t := range totals {
					fmt.Fprintf(tw, "%s\t%s\n", t.Category, t.Total)
				}
				tw.Flush()
			}
			total, err := a.store.Total(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: $%s\n", total)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVarP(&expenseAmount, "amount", "a", "", "Amount, e.g. 12.50")
		c.Flags().StringVarP(&expenseDescription, "description", "d", "", "What the money was spent on")
		c.Flags().StringVarP(&expenseCategory, "category", "c", "", "Category: "+categoryList())
	}
	_ = addCmd.MarkFlagRequired("amount")
	_ = addCmd.MarkFlagRequired("description")
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "Page to show when --per-page is set")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 0, "Expenses per page (0 shows all)")
	totalCmd.Flags().BoolVar(&totalByCategory, "by-category", false, "Also show the total per category")

	rootCmd.AddCommand(addCmd, listCmd, editCmd, deleteCmd, totalCmd)
}

func newViewModel(ctx context.Context, a *app) *viewmodel.ExpenseViewModel {
	cfg, err := a.prefs.Get(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to read reminder config")
	}
	return viewmodel.NewExpenseViewModel(a.store, a.settings, cfg, a.logger)
}

func printExpenses(out io.Writer, list []models.Expense, total models.Money) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No expenses recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Category, e.Amount, e.Description)
	}
	tw.Flush()
	fmt.Fprintf(out, "Total: $%s\n", total)
}

type page struct {
	Page, Pages int
	Start, End  int
}

// paginate clamps the zero-based page into range and returns the slice
// bounds of that page.
func paginate(total, pageIdx, perPage int) page {
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if pageIdx >= pages {
		pageIdx = pages - 1
	}
	if pageIdx < 0 {
		pageIdx = 0
	}
	start := pageIdx * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return page{Page: pageIdx, Pages: pages, Start: start, End: end}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", s)
	}
	return id, nil
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
