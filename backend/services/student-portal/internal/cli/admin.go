package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/pflag"

	"tuitionpay/backend/services/student-portal/internal/clients"
)

var adminCommands = map[string]func(ctx context.Context, e *env, args []string) error{
	"debts":          adminDebts,
	"debt-create":    adminDebtCreate,
	"debt-update":    adminDebtUpdate,
	"debt-delete":    adminDebtDelete,
	"billings":       adminBillings,
	"billing-create": adminBillingCreate,
	"billing-update": adminBillingUpdate,
	"billing-delete": adminBillingDelete,
	"users":          adminUsers,
}

func runAdmin(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		names := make([]string, 0, len(adminCommands))
		for name := range adminCommands {
			names = append(names, name)
		}
		sort.Strings(names)
		return usagef("admin: subcommand required (%v)", names)
	}
	fn, ok := adminCommands[args[0]]
	if !ok {
		return usagef("admin: unknown subcommand %q", args[0])
	}
	return fn(ctx, e, args[1:])
}

func adminDebts(ctx context.Context, e *env, _ []string) error {
	list, err := e.svc.ListDebts(ctx)
	if err != nil {
		return err
	}
	tw := newTable(e.stdout)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, d.Description)
	}
	return tw.Flush()
}

func debtFlags(fs *pflag.FlagSet) *clients.DebtInput {
	in := &clients.DebtInput{}
	fs.StringVar(&in.Name, "name", "", "category name")
	fs.StringVar(&in.Description, "description", "", "category description")
	return in
}

func adminDebtCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlags("admin debt-create", e)
	in := debtFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := e.svc.CreateDebt(ctx, *in); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "created category %s\n", in.Name)
	return nil
}

func adminDebtUpdate(ctx context.Context, e *env, args []string) error {
	fs := newFlags("admin debt-update", e)
	in := debtFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("admin debt-update: category id required")
	}
	if err := e.svc.UpdateDebt(ctx, fs.Arg(0), *in); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "updated category %s\n", fs.Arg(0))
	return nil
}

func adminDebtDelete(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usagef("admin debt-delete: category id required")
	}
	if err := e.svc.DeleteDebt(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "deleted category %s\n", args[0])
	return nil
}

func adminBillings(ctx context.Context, e *env, args []string) error {
	fs := newFlags("admin billings", e)
	var f clients.BillingFilter
	fs.StringVar(&f.Search, "search", "", "match description")
	fs.StringVar(&f.DebtID, "debt", "", "category id")
	fs.StringVar(&f.UserID, "user", "", "student user id")
	fs.StringVar(&f.Status, "status", "", "paid or unpaid")
	if err := parse(fs, args); err != nil {
		return err
	}
	list, err := e.svc.ListBillings(ctx, f)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(e.stdout, "no billings")
		return nil
	}
	printBillings(e.stdout, list)
	return nil
}

func billingFlags(fs *pflag.FlagSet) *clients.BillingInput {
	in := &clients.BillingInput{}
	fs.Int64Var(&in.Amount, "amount", 0, "amount in rupiah")
	fs.StringVar(&in.Description, "description", "", "billing description")
	fs.IntVar(&in.Month, "month", 0, "billing month (1-12)")
	fs.IntVar(&in.Year, "year", 0, "billing year")
	fs.StringVar(&in.DebtID, "debt", "", "category id")
	fs.StringVar(&in.UserID, "user", "", "student user id")
	fs.StringVar(&in.Status, "status", "unpaid", "paid or unpaid")
	return in
}

func adminBillingCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlags("admin billing-create", e)
	in := billingFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := e.svc.CreateBilling(ctx, *in); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "created billing for user %s (%s)\n", in.UserID, formatRupiah(in.Amount))
	return nil
}

func adminBillingUpdate(ctx context.Context, e *env, args []string) error {
	fs := newFlags("admin billing-update", e)
	in := billingFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("admin billing-update: billing id required")
	}
	if err := e.svc.UpdateBilling(ctx, fs.Arg(0), *in); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "updated billing %s\n", fs.Arg(0))
	return nil
}

func adminBillingDelete(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usagef("admin billing-delete: billing id required")
	}
	if err := e.svc.DeleteBilling(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "deleted billing %s\n", args[0])
	return nil
}

func adminUsers(ctx context.Context, e *env, _ []string) error {
	list, err := e.svc.ListUsers(ctx)
	if err != nil {
		return err
	}
	tw := newTable(e.stdout)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	return tw.Flush()
}
