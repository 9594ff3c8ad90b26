package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tuitionpay/backend/services/student-portal/internal/models"
)

func runServe(ctx context.Context, e *env, args []string) error {
	fs := newFlags("serve", e)
	port := fs.String("port", "", "listen port (overrides http.port)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *port != "" {
		e.cfg.HTTP.Port = *port
	}
	return e.app.Serve(ctx)
}

func printSession(e *env, session *models.Session) {
	role := session.User.Role
	if role == "" {
		role = models.RoleStudent
	}
	fmt.Fprintf(e.stdout, "logged in as %s <%s> (%s)\n", session.User.DisplayName(), session.User.Email, role)
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login", e)
	email := fs.StringP("email", "e", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return usagef("login: --email is required")
	}
	pwd, err := promptPassword(e, *password)
	if err != nil {
		return err
	}
	session, err := e.svc.Login(ctx, *email, pwd)
	if err != nil {
		return err
	}
	printSession(e, session)
	return nil
}

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register", e)
	name := fs.String("name", "", "full name")
	email := fs.StringP("email", "e", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *name == "" || *email == "" {
		return usagef("register: --name and --email are required")
	}
	pwd, err := promptPassword(e, *password)
	if err != nil {
		return err
	}
	session, err := e.svc.Register(ctx, *name, *email, pwd)
	if err != nil {
		return err
	}
	printSession(e, session)
	return nil
}

func runLogout(ctx context.Context, e *env, args []string) error {
	_, hadSession := e.svc.Store().Session()
	// always clears storage, including keys left behind by an unusable session
	if err := e.svc.Logout(ctx); err != nil {
		fmt.Fprintf(e.stderr, "warning: %s; local session cleared anyway\n", describe(err))
	}
	if !hadSession {
		fmt.Fprintln(e.stdout, "not logged in")
		return nil
	}
	fmt.Fprintln(e.stdout, "logged out")
	return nil
}

func runWhoami(_ context.Context, e *env, _ []string) error {
	session, ok := e.svc.Store().Session()
	if !ok {
		fmt.Fprintln(e.stdout, "not logged in")
		return nil
	}
	printSession(e, &session)
	return nil
}

func runBillings(ctx context.Context, e *env, args []string) error {
	fs := newFlags("billings", e)
	unpaid := fs.Bool("unpaid", false, "only show unpaid billings")
	if err := parse(fs, args); err != nil {
		return err
	}
	list, err := e.svc.Billings(ctx)
	if err != nil {
		return err
	}
	if *unpaid {
		filtered := list[:0]
		for _, b := range list {
			if !b.IsPaid() {
				filtered = append(filtered, b)
			}
		}
		list = filtered
	}
	if len(list) == 0 {
		fmt.Fprintln(e.stdout, "no billings")
		return nil
	}
	printBillings(e.stdout, list)
	return nil
}

func runCart(ctx context.Context, e *env, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	st := e.svc.Store()
	switch sub {
	case "list":
		printCart(e.stdout, st.Cart(), st.CartTotal())
		return nil
	case "add":
		if len(args) == 0 {
			return usagef("cart add: billing id required")
		}
		for _, id := range args {
			if err := e.svc.AddToCart(ctx, id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(e.stdout, "added %s\n", id)
		}
		return nil
	case "remove":
		if len(args) == 0 {
			return usagef("cart remove: billing id required")
		}
		for _, id := range args {
			if e.svc.RemoveFromCart(ctx, id) {
				fmt.Fprintf(e.stdout, "removed %s\n", id)
			} else {
				fmt.Fprintf(e.stdout, "%s is not in the cart\n", id)
			}
		}
		return nil
	default:
		return usagef("cart: unknown subcommand %q", sub)
	}
}

func runCheckout(ctx context.Context, e *env, args []string) error {
	res, err := e.svc.Checkout(ctx, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "payment started for %s (%s)\n", res.Transaction.BillingID, formatRupiah(res.Transaction.Amount))
	fmt.Fprintf(e.stdout, "order:   %s\n", res.OrderID)
	fmt.Fprintf(e.stdout, "pay at:  %s\n", res.RedirectURL)
	return nil
}

func runStatus(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usagef("status: exactly one billing id required")
	}
	paid, err := e.svc.CheckPaymentStatus(ctx, args[0])
	if err != nil {
		return err
	}
	if paid {
		fmt.Fprintf(e.stdout, "%s: paid\n", args[0])
	} else {
		fmt.Fprintf(e.stdout, "%s: not paid yet\n", args[0])
	}
	return nil
}

func runWatch(ctx context.Context, e *env, args []string) error {
	fs := newFlags("watch", e)
	timeout := fs.Duration("timeout", 15*time.Minute, "give up after this long")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("watch: exactly one billing id required")
	}
	billingID := fs.Arg(0)

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	fmt.Fprintf(e.stderr, "waiting for payment of %s...\n", billingID)
	if err := e.svc.WatchPayment(ctx, billingID); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: still not paid after %s", billingID, *timeout)
		}
		return err
	}
	fmt.Fprintf(e.stdout, "%s: paid\n", billingID)
	return nil
}

func runTransactions(_ context.Context, e *env, _ []string) error {
	if _, ok := e.svc.Store().Session(); !ok {
		fmt.Fprintln(e.stdout, "not logged in")
		return nil
	}
	printTransactions(e.stdout, e.svc.Store().Transactions())
	return nil
}
